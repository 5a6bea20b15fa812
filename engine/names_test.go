package engine

import "testing"

func TestWitName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"poll", "poll"},
		{"instant-network", "instant-network"},
		{"method-pollable-ready", "[method]pollable.ready"},
		{"method-pollable-block", "[method]pollable.block"},
		{"method-input-stream-read", "[method]input-stream.read"},
		{"method-output-stream-blocking-write-and-flush", "[method]output-stream.blocking-write-and-flush"},
		{"method-tcp-socket-start-bind", "[method]tcp-socket.start-bind"},
		{"method-udp-socket-stream", "[method]udp-socket.stream"},
		{"method-incoming-datagram-stream-receive", "[method]incoming-datagram-stream.receive"},
		{"method-resolve-address-stream-resolve-next-address", "[method]resolve-address-stream.resolve-next-address"},
		{"static-x-y", "[static]x.y"},
		{"constructor-pipe", "[constructor]pipe"},
		{"resource-drop-tcp-socket", "[resource-drop]tcp-socket"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := WitName(tt.input)
			if result != tt.expected {
				t.Errorf("WitName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestKebabName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"poll", "poll"},
		{"[method]pollable.ready", "method-pollable-ready"},
		{"[method]tcp-socket.finish-connect", "method-tcp-socket-finish-connect"},
		{"[resource-drop]pollable", "resource-drop-pollable"},
		{"[constructor]pipe", "constructor-pipe"},
		{"", ""},
		{"[]", ""},
		{".", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := KebabName(tt.input)
			if result != tt.expected {
				t.Errorf("KebabName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestKebabWitRoundtrip(t *testing.T) {
	for _, original := range []string{
		"method-output-stream-write",
		"method-tcp-socket-start-connect",
		"method-outgoing-datagram-stream-check-send",
	} {
		wit := WitName(original)
		back := KebabName(wit)
		if back != original {
			t.Errorf("roundtrip failed: %q -> %q -> %q", original, wit, back)
		}
	}
}

func TestWitNameEdgeCases(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"method", "method"},
		{"method-abc", "[method]abc"},
		{"static-xyz", "[static]xyz"},
		{"static", "static"},
		{"", ""},
		{"-", "-"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := WitName(tt.input)
			if result != tt.expected {
				t.Errorf("WitName(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
