package runtime

import (
	"strings"
	"testing"

	"github.com/deboxhq/debox/internal/config"
)

func testApp() *config.App {
	return &config.App{
		AppName:       "Firefox",
		ContainerName: "debox-firefox",
		Image: config.Image{
			Base:     "debian:bookworm",
			Packages: []string{"firefox-esr", "ca-certificates"},
		},
	}
}

func testHost() hostIdentity {
	return hostIdentity{User: "jane", UID: 1000, Locale: "en_US.UTF-8"}
}

func TestContainerfileBasics(t *testing.T) {
	content := containerfile(testApp(), testHost())

	for _, want := range []string{
		"FROM debian:bookworm",
		"ARG HOST_USER=jane",
		"ARG HOST_UID=1000",
		"firefox-esr ca-certificates",
		"RUN useradd -m -s /bin/bash -u $HOST_UID $HOST_USER",
		`CMD ["sleep", "infinity"]`,
	} {
		if !strings.Contains(content, want) {
			t.Fatalf("containerfile missing %q:\n%s", want, content)
		}
	}
}

func TestContainerfileTargetRelease(t *testing.T) {
	app := testApp()
	app.Image.AptTargetRelease = "bookworm-backports"

	content := containerfile(app, testHost())
	if !strings.Contains(content, "-t bookworm-backports") {
		t.Fatalf("apt_target_release not honored:\n%s", content)
	}
}

func TestContainerfileRepositories(t *testing.T) {
	app := testApp()
	app.Image.Repositories = []config.Repository{{
		KeyURL:     "https://example.org/key.asc",
		KeyPath:    "/usr/share/keyrings/example.gpg",
		RepoString: "deb [signed-by=/usr/share/keyrings/example.gpg] https://example.org/apt stable main",
	}}

	content := containerfile(app, testHost())
	if !strings.Contains(content, "wget -qO- https://example.org/key.asc") {
		t.Fatalf("repository key fetch missing:\n%s", content)
	}
	if !strings.Contains(content, "gpg --dearmor > /usr/share/keyrings/example.gpg") {
		t.Fatalf("key dearmor missing:\n%s", content)
	}
}

func TestContainerfileLocalDebs(t *testing.T) {
	app := testApp()
	app.Image.LocalDebs = []string{"~/Downloads/tool.deb"}

	content := containerfile(app, testHost())
	if !strings.Contains(content, "COPY tool.deb /tmp/debs/") {
		t.Fatalf("local deb copy missing:\n%s", content)
	}
	if !strings.Contains(content, "install -y /tmp/debs/*.deb") {
		t.Fatalf("local deb install missing:\n%s", content)
	}
}

func TestLocalImageRef(t *testing.T) {
	ref, err := LocalImageRef("debox-firefox")
	if err != nil {
		t.Fatalf("LocalImageRef: %v", err)
	}
	if ref != "localhost/debox-firefox:latest" {
		t.Fatalf("ref = %q, want %q", ref, "localhost/debox-firefox:latest")
	}

	if _, err := LocalImageRef("Not A Name!"); err == nil {
		t.Fatal("invalid name accepted")
	}
}

func TestRegistryImageRef(t *testing.T) {
	ref, err := RegistryImageRef("localhost:5000", "debox-firefox", "latest")
	if err != nil {
		t.Fatalf("RegistryImageRef: %v", err)
	}
	if ref != "localhost:5000/debox-firefox:latest" {
		t.Fatalf("ref = %q, want %q", ref, "localhost:5000/debox-firefox:latest")
	}
}

func TestHostLocaleFallback(t *testing.T) {
	t.Setenv("LC_CTYPE", "")
	t.Setenv("LC_ALL", "")
	t.Setenv("LANG", "")

	if got := hostLocale(); got != "C.UTF-8" {
		t.Fatalf("hostLocale = %q, want C.UTF-8", got)
	}
}

func TestHostLocalePrefersCType(t *testing.T) {
	t.Setenv("LC_CTYPE", "de_DE.UTF-8")
	t.Setenv("LANG", "en_US.UTF-8")

	if got := hostLocale(); got != "de_DE.UTF-8" {
		t.Fatalf("hostLocale = %q, want de_DE.UTF-8", got)
	}
}
