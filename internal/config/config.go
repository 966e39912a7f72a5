package config

// Declarative specification for one application (or one shared base image).
//
// Loaded from a user-authored YAML file. Field defaults are applied at load
// time, so consumers never need to distinguish "unset" from "set to the
// default". The container name is the unique key among installed
// applications; base image configs carry an image name instead.
type App struct {
	Version       string      `yaml:"version"`
	AppName       string      `yaml:"app_name"`
	ContainerName string      `yaml:"container_name"`
	ImageName     string      `yaml:"image_name"`
	Image         Image       `yaml:"image"`
	Storage       Storage     `yaml:"storage"`
	Runtime       Runtime     `yaml:"runtime"`
	Integration   Integration `yaml:"integration"`
	Permissions   Permissions `yaml:"permissions"`
	Security      Security    `yaml:"security"`
	Lifecycle     Lifecycle   `yaml:"lifecycle"`
}

// Describes how the application's image is built.
type Image struct {
	Base             string       `yaml:"base"`
	DebianComponents string       `yaml:"debian_components"`
	AptTargetRelease string       `yaml:"apt_target_release"`
	Repositories     []Repository `yaml:"repositories"`
	LocalDebs        []string     `yaml:"local_debs"`
	Packages         []string     `yaml:"packages"`
}

// An additional APT repository baked into the image.
type Repository struct {
	KeyURL     string `yaml:"key_url"`
	KeyPath    string `yaml:"key_path"`
	RepoString string `yaml:"repo_string"`
}

// Host storage mapped into the container.
type Storage struct {
	Volumes []string `yaml:"volumes"`
}

// Runtime behavior of the container's primary application.
type Runtime struct {
	DefaultExec     string            `yaml:"default_exec"`
	Interactive     bool              `yaml:"interactive"`
	Environment     map[string]string `yaml:"environment"`
	PrependExecArgs []string          `yaml:"prepend_exec_args"`
}

// Host desktop integration settings.
//
// DesktopIntegration lives here syntactically but changes container creation
// parameters (session mounts, env passthrough), so the hasher assigns it to
// the container tier.
type Integration struct {
	DesktopIntegration bool              `yaml:"desktop_integration"`
	Aliases            map[string]string `yaml:"aliases"`
	SkipCategories     []string          `yaml:"skip_categories"`
	SkipNames          []string          `yaml:"skip_names"`
}

// Host resources the container may access.
type Permissions struct {
	Network    bool     `yaml:"network"`
	GPU        bool     `yaml:"gpu"`
	Sound      bool     `yaml:"sound"`
	Webcam     bool     `yaml:"webcam"`
	Microphone bool     `yaml:"microphone"`
	Bluetooth  bool     `yaml:"bluetooth"`
	Printers   bool     `yaml:"printers"`
	SystemDBus bool     `yaml:"system_dbus"`
	HostOpener bool     `yaml:"host_opener"`
	Devices    []string `yaml:"devices"`
}

// Security-related settings.
type Security struct {
	GPGKeyID string `yaml:"gpg_key_id"`
}

// Lifecycle hooks run at defined points of the application lifecycle.
type Lifecycle struct {
	PostInstall string `yaml:"post_install"`
}

// Returns the resource name this config is keyed by: the container name for
// applications, the image name for shared base images.
func (a *App) Name() string {
	if a.ContainerName != "" {
		return a.ContainerName
	}
	return a.ImageName
}

// Returns true if this config describes a shared base image rather than an
// installed application.
func (a *App) IsBaseImage() bool {
	return a.ContainerName == "" && a.ImageName != ""
}

// Returns an App with all documented defaults applied.
//
// Unmarshaling a config file on top of this value leaves unset fields at
// their defaults.
func defaults() *App {
	return &App{
		Integration: Integration{
			DesktopIntegration: true,
		},
		Permissions: Permissions{
			Network:    true,
			GPU:        true,
			Sound:      true,
			SystemDBus: true,
		},
	}
}
