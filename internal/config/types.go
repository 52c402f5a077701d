package config

// Config is the root configuration for the Maestro engine.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Responder ResponderConfig `yaml:"responder,omitempty"`
	Commerce  CommerceConfig  `yaml:"commerce,omitempty"`
	Intake    IntakeConfig    `yaml:"intake,omitempty"`
	Storage   StorageConfig   `yaml:"storage,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// GatewayConfig controls the HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int         `yaml:"port,omitempty"`
	Bind           string      `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string      `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth `yaml:"auth,omitempty"`
	AllowedOrigins []string    `yaml:"allowedOrigins,omitempty"`
}

// GatewayAuth configures token auth for the management surface and WS feed.
type GatewayAuth struct {
	Token string `yaml:"token,omitempty"`
}

// ResponderConfig points at the conversational-response generator.
type ResponderConfig struct {
	BaseURL string `yaml:"baseUrl,omitempty"`
	APIKey  string `yaml:"apiKey,omitempty"`
}

// CommerceConfig points at the outbound commerce tool service.
type CommerceConfig struct {
	BaseURL string `yaml:"baseUrl,omitempty"`
	APIKey  string `yaml:"apiKey,omitempty"`
}

// IntakeConfig configures inbound message sources beyond HTTP.
type IntakeConfig struct {
	IMAP *IMAPConfig `yaml:"imap,omitempty"`
}

// IMAPConfig defines the email intake mailbox.
type IMAPConfig struct {
	Server      string `yaml:"server"`
	Port        int    `yaml:"port,omitempty"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password,omitempty"`
	Mailbox     string `yaml:"mailbox,omitempty"`
	PollSeconds int    `yaml:"pollSeconds,omitempty"`
	UseTLS      *bool  `yaml:"useTLS,omitempty"` // defaults to true
}

// StorageConfig selects the session/rule/trace store backend.
type StorageConfig struct {
	Driver string `yaml:"driver,omitempty"` // "memory" | "sqlite"
	Path   string `yaml:"path,omitempty"`   // sqlite file; default under the data dir
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
}
