// Package render implements the video pipeline: turning a ready story's
// narration, transcript, and library assets into a finished vertical short.
//
// Rendering runs as five steps — input validation, audio mixing, background
// footage preparation, subtitle generation, and final composition. Work
// happens in the story's staging directory and the finished video is moved
// into the output directory only after a verified copy, so a failed render
// never leaves a partial file where the operator looks for results.
package render
