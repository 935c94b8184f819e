// Package subtitles turns narration timing data into burn-ready subtitle
// files.
//
// The package parses timestamp artifacts from both transcription sources
// (whisper segment JSON and ElevenLabs character timing), splits long
// segments into short on-screen chunks, and renders the result as an ASS
// subtitle script with per-chunk fades for ffmpeg to burn in.
package subtitles
