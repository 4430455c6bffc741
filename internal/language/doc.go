// Package language normalizes the language codes Plex reports on audio
// streams (ISO 639-1, ISO 639-2 in either form, or plain English words)
// and answers the questions discovery asks about them.
//
// An absent code is reported as Unknown rather than an empty string so that
// track listings and the English-or-unknown heuristic agree on one sentinel.
package language
