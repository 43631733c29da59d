package uiwgpu

import "testing"

func TestPresentModeString(t *testing.T) {
	tests := []struct {
		mode PresentMode
		want string
	}{
		{PresentModeAutoVsync, "auto-vsync"},
		{PresentModeFifo, "fifo"},
		{PresentModeMailbox, "mailbox"},
		{PresentModeImmediate, "immediate"},
		{PresentMode(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("PresentMode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}

func TestDefaultConfiguration(t *testing.T) {
	config := DefaultConfiguration()
	if config.PresentMode != PresentModeAutoVsync {
		t.Errorf("PresentMode = %v, want PresentModeAutoVsync", config.PresentMode)
	}
	if config.DesiredMaximumFrameLatency != 2 {
		t.Errorf("DesiredMaximumFrameLatency = %d, want 2", config.DesiredMaximumFrameLatency)
	}
	if _, ok := config.Setup.(*SetupCreateNew); !ok {
		t.Errorf("Setup is %T, want *SetupCreateNew", config.Setup)
	}
	if config.OnSurfaceError == nil {
		t.Error("OnSurfaceError is nil")
	}
}
