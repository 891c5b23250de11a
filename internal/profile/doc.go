// Package profile stores the inputs the planning engine reads: a user's
// physiological profile and their daily signal logs (sleep, stress, mood,
// symptoms, intake, activity).
package profile
