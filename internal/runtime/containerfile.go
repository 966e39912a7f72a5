package runtime

import (
	"fmt"
	"os"
	"os/user"
	"path"
	"strconv"
	"strings"

	"github.com/deboxhq/debox/internal/config"
)

// Host identity baked into every image so the container user mirrors the
// host user.
type hostIdentity struct {
	User   string
	UID    int
	Locale string
}

// Detects the host user, UID, and locale for image builds.
func detectHost() (hostIdentity, error) {
	u, err := user.Current()
	if err != nil {
		return hostIdentity{}, fmt.Errorf("resolving host user: %w", err)
	}

	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return hostIdentity{}, fmt.Errorf("parsing host uid %q: %w", u.Uid, err)
	}

	return hostIdentity{User: u.Username, UID: uid, Locale: hostLocale()}, nil
}

// Returns the host locale in "lang.encoding" form, defaulting to C.UTF-8.
func hostLocale() string {
	for _, name := range []string{"LC_CTYPE", "LC_ALL", "LANG"} {
		value := os.Getenv(name)
		value, _, _ = strings.Cut(value, "@")
		if value != "" && strings.Contains(value, ".") {
			return value
		}
	}
	return "C.UTF-8"
}

// Generates the Containerfile for an application image.
//
// The image starts from the configured base, adds the configured APT
// repositories and packages, installs any local .deb files staged into the
// build context, and creates a sudo-capable user matching the host identity.
// The keep-alive command keeps a started container alive so desktop entries
// and exec sessions have a running process to attach to.
func containerfile(app *config.App, host hostIdentity) string {
	var b strings.Builder

	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}

	line("FROM %s", app.Image.Base)
	line("ARG HOST_USER=%s", host.User)
	line("ARG HOST_UID=%d", host.UID)
	line("ARG HOST_LOCALE=%s", host.Locale)
	line("ENV DEBIAN_FRONTEND=noninteractive")
	line("RUN apt-get update && apt-get install -y wget gpg sudo locales && apt-get clean")

	line("RUN sed -i -e \"s/# $HOST_LOCALE UTF-8/$HOST_LOCALE UTF-8/\" /etc/locale.gen")
	line("RUN dpkg-reconfigure --frontend=noninteractive locales")
	line("ENV LANG=$HOST_LOCALE")

	if app.Image.DebianComponents != "" {
		line("RUN sed -i -e \"s/ main$/ %s/\" /etc/apt/sources.list.d/*.sources /etc/apt/sources.list 2>/dev/null || true", app.Image.DebianComponents)
	}

	for _, repo := range app.Image.Repositories {
		line("RUN mkdir -p $(dirname %s)", repo.KeyPath)
		line("RUN wget -qO- %s | gpg --dearmor > %s", repo.KeyURL, repo.KeyPath)
		line("RUN echo %q > /etc/apt/sources.list.d/%s.list", repo.RepoString, app.Name())
	}

	if len(app.Image.LocalDebs) > 0 {
		for _, deb := range app.Image.LocalDebs {
			line("COPY %s /tmp/debs/", path.Base(deb))
		}
		line("RUN apt-get update && apt-get install -y /tmp/debs/*.deb && rm -rf /tmp/debs && apt-get clean")
	}

	if len(app.Image.Packages) > 0 {
		install := "apt-get update && apt-get install -y"
		if app.Image.AptTargetRelease != "" {
			install += " -t " + app.Image.AptTargetRelease
		}
		line("RUN %s %s && apt-get clean", install, strings.Join(app.Image.Packages, " "))
	}

	line("RUN useradd -m -s /bin/bash -u $HOST_UID $HOST_USER")
	line("RUN usermod -aG sudo $HOST_USER")
	line(`RUN echo "$HOST_USER ALL=(ALL) NOPASSWD:ALL" >> /etc/sudoers`)
	line(`CMD ["sleep", "infinity"]`)

	return b.String()
}
