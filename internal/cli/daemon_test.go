package cli

import "testing"

func TestUIPort(t *testing.T) {
	tests := []struct {
		name string
		addr string
		want int
	}{
		{"Default bind address", "0.0.0.0:8080", 8080},
		{"Custom port", "127.0.0.1:9000", 9000},
		{"Port only", ":8088", 8088},
		{"No port", "localhost", 8080},
		{"Garbage port", "0.0.0.0:dashboard", 8080},
		{"Empty", "", 8080},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := uiPort(tt.addr); got != tt.want {
				t.Errorf("uiPort(%q) = %d, want %d", tt.addr, got, tt.want)
			}
		})
	}
}
