// Package prompt flattens ordered chat message histories into the single
// plain-text prompt format the accelerator backend consumes.
//
// The backend has no notion of chat roles: it receives one text blob and
// generates a continuation. The formatter therefore concatenates the
// surviving messages in order and appends a trailing assistant cue that
// signals the backend to start generating.
//
// Two formatting modes are supported, selected by configuration (never
// per request):
//
//   - ModeSimple: message content only, separated by blank lines.
//   - ModeLabeled: each message prefixed with its role label
//     ("Instructions:", "User:", "Assistant:").
//
// Messages whose content is empty after trimming, or which contain the
// backend's fault signature (poisoned history from an earlier failed
// generation), are dropped before formatting.
package prompt
