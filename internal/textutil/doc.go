// Package textutil provides text processing utilities for story ingestion.
//
// The primary use cases are:
//   - Cleaning Reddit post markdown into narration-ready prose
//   - Creating token-based fingerprints to detect reposted stories
//   - Sanitizing filenames and path segments for safe filesystem use
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// The tokenization process lowercases text, splits on non-alphanumeric characters,
// and filters tokens shorter than 3 characters.
package textutil
