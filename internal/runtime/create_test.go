package runtime

import (
	"strings"
	"testing"
)

func TestHostConfigNetworkDisabled(t *testing.T) {
	app := testApp()
	app.Permissions.Network = false

	hostCfg, err := hostConfig(app)
	if err != nil {
		t.Fatalf("hostConfig: %v", err)
	}
	if hostCfg.NetworkMode != "none" {
		t.Fatalf("NetworkMode = %q, want none", hostCfg.NetworkMode)
	}
}

func TestHostConfigKeepsHostUID(t *testing.T) {
	hostCfg, err := hostConfig(testApp())
	if err != nil {
		t.Fatalf("hostConfig: %v", err)
	}
	if hostCfg.UsernsMode != "keep-id" {
		t.Fatalf("UsernsMode = %q, want keep-id", hostCfg.UsernsMode)
	}
}

func TestHostConfigIsolatedHomeBind(t *testing.T) {
	hostCfg, err := hostConfig(testApp())
	if err != nil {
		t.Fatalf("hostConfig: %v", err)
	}

	found := false
	for _, bind := range hostCfg.Binds {
		if strings.Contains(bind, "homes/debox-firefox:") {
			found = true
		}
	}
	if !found {
		t.Fatalf("isolated home not bind-mounted: %v", hostCfg.Binds)
	}
}

func TestContainerEnvForwardsConfigEnvironment(t *testing.T) {
	app := testApp()
	app.Integration.DesktopIntegration = false
	app.Runtime.Environment = map[string]string{"MOZ_ENABLE_WAYLAND": "1"}

	env := containerEnv(app)
	if len(env) != 1 || env[0] != "MOZ_ENABLE_WAYLAND=1" {
		t.Fatalf("env = %v, want only the config environment", env)
	}
}

func TestExpandHome(t *testing.T) {
	cases := []struct{ in, want string }{
		{"~/Downloads", "/home/jane/Downloads"},
		{"~", "/home/jane"},
		{"/absolute/path", "/absolute/path"},
	}
	for _, tc := range cases {
		if got := expandHome(tc.in, "/home/jane"); got != tc.want {
			t.Fatalf("expandHome(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
