// Package classify turns Plex metadata into catalog items, detecting
// commentary tracks by case-insensitive keyword containment on each audio
// stream's best available name.
package classify
