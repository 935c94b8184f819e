// Package workflow coordinates continuous story processing. The manager
// polls the store on an interval, drives the story pipeline to ready and
// the video pipeline to rendered, and enforces single-instance execution
// with a file lock so two runners never fight over the same story.
package workflow
