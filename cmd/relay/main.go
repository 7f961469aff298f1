// Relay is an inference proxy that fronts a fleet of slow, stateful
// hardware-accelerator backends with the chat APIs clients already
// speak.
//
// It accepts OpenAI-style (/v1/chat/completions) and Ollama-style
// (/api/chat, /api/generate) requests, flattens the conversation into
// the prompt format the accelerators expect, drives the start/poll
// generation loop against one backend per request, and recovers from
// accelerator cache-overflow faults by resetting and retrying
// transparently.
//
// Usage:
//
//	# Start with the default configuration file
//	relay run
//
//	# Start with a custom configuration file
//	relay run --config /etc/relay/relay.yaml
//
//	# Validate a configuration file without starting
//	relay validate --config /etc/relay/relay.yaml
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}
