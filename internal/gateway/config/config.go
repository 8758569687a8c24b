package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Env            string
	AllowedOrigins []string
	Chain          ChainConfig
	Media          MediaConfig
	Universe       UniverseConfig
	Providers      ProviderConfig
	Poll           PollConfig
	Server         ServerConfig
	SessionTTL     time.Duration
	// StepTimeout bounds one detached generation step, video polling included.
	StepTimeout time.Duration
}

type ServerConfig struct {
	ReadHeaderTimeout    time.Duration
	IdleTimeout          time.Duration
	MaxConcurrentStreams uint32
	// ShutdownGrace is how long shutdown waits for open requests and running
	// steps before giving up.
	ShutdownGrace time.Duration
}

type ChainConfig struct {
	RPCURL    string
	ChainID   int64
	SignerKey string
}

type MediaConfig struct {
	Enabled       bool
	Endpoint      string
	Region        string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
	// Upload re-hosts finished videos before they become node links.
	Upload bool
	// CacheDir enables the on-disk cache tier in front of the store.
	CacheDir         string
	CacheDirMaxBytes int64
}

// CanUseS3 reports whether the bucket settings are complete.
func (m MediaConfig) CanUseS3() bool {
	return m.Enabled && m.Endpoint != "" && m.AccessKey != "" && m.SecretKey != "" && m.Bucket != ""
}

type UniverseConfig struct {
	DSN  string
	Path string
}

type ProviderConfig struct {
	GeminiAPIKey     string
	GeminiImageModel string
	GeminiEditModel  string
	SoraBaseURL      string
	SoraAPIKey       string
	KlingBaseURL     string
	KlingAPIKey      string
	RPS              float64
	Burst            int
	// JobTTL bounds how long an unpolled provider job is remembered.
	JobTTL time.Duration
}

type PollConfig struct {
	Interval  time.Duration
	Timeout   time.Duration
	MaxErrors int
}

func Load() (*Config, error) {
	return LoadArgs(os.Args[1:])
}

// LoadArgs reads .env, then flags from args, then the environment.
func LoadArgs(args []string) (*Config, error) {
	_ = godotenv.Load()

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := os.Getenv("PORT"); envPort != "" {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	env := strings.TrimSpace(os.Getenv("APP_ENV"))
	if env == "" {
		env = "local"
	}

	chain, err := loadChainConfig()
	if err != nil {
		return nil, err
	}
	providers, err := loadProviderConfig()
	if err != nil {
		return nil, err
	}
	poll, err := loadPollConfig()
	if err != nil {
		return nil, err
	}
	sessionTTL, err := envDuration("SESSION_TTL", 30*time.Minute)
	if err != nil {
		return nil, err
	}
	stepTimeout, err := envDuration("STEP_TIMEOUT", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	if stepTimeout < poll.Timeout {
		return nil, fmt.Errorf("STEP_TIMEOUT %s is shorter than POLL_TIMEOUT %s", stepTimeout, poll.Timeout)
	}
	providers.JobTTL = stepTimeout
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Port:           *port,
		Env:            env,
		AllowedOrigins: splitList(os.Getenv("ALLOWED_ORIGINS")),
		Chain:          chain,
		Media:          loadMediaConfig(env, *port),
		Universe: UniverseConfig{
			DSN:  strings.TrimSpace(os.Getenv("UNIVERSE_STORE_DSN")),
			Path: firstNonEmpty(strings.TrimSpace(os.Getenv("UNIVERSE_STORE_PATH")), "tmp/universes.json"),
		},
		Providers:   providers,
		Poll:        poll,
		Server:      server,
		SessionTTL:  sessionTTL,
		StepTimeout: stepTimeout,
	}, nil
}

func loadServerConfig() (ServerConfig, error) {
	cfg := ServerConfig{MaxConcurrentStreams: 250}
	var err error
	if cfg.ReadHeaderTimeout, err = envDuration("HTTP_READ_HEADER_TIMEOUT", 10*time.Second); err != nil {
		return cfg, err
	}
	// Await long polls and session streams hold connections open.
	if cfg.IdleTimeout, err = envDuration("HTTP_IDLE_TIMEOUT", 2*time.Minute); err != nil {
		return cfg, err
	}
	if cfg.ShutdownGrace, err = envDuration("SHUTDOWN_GRACE", 30*time.Second); err != nil {
		return cfg, err
	}
	if raw := strings.TrimSpace(os.Getenv("HTTP2_MAX_STREAMS")); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || v == 0 {
			return cfg, fmt.Errorf("invalid HTTP2_MAX_STREAMS %q", raw)
		}
		cfg.MaxConcurrentStreams = uint32(v)
	}
	return cfg, nil
}

func loadChainConfig() (ChainConfig, error) {
	cfg := ChainConfig{
		RPCURL:    firstNonEmpty(strings.TrimSpace(os.Getenv("CHAIN_RPC_URL")), "http://localhost:8545"),
		SignerKey: strings.TrimSpace(os.Getenv("CHAIN_SIGNER_KEY")),
	}
	if raw := strings.TrimSpace(os.Getenv("CHAIN_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return cfg, fmt.Errorf("invalid CHAIN_ID %q", raw)
		}
		cfg.ChainID = id
	}
	return cfg, nil
}

func loadMediaConfig(env, port string) MediaConfig {
	endpoint := resolveMediaEndpoint(env)
	return MediaConfig{
		Enabled:       strings.EqualFold(strings.TrimSpace(env), "local") || endpoint != "",
		Endpoint:      endpoint,
		Region:        firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_REGION")), "us-east-1"),
		AccessKey:     firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_ACCESS_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_USER"))),
		SecretKey:     firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_SECRET_KEY")), strings.TrimSpace(os.Getenv("MINIO_ROOT_PASSWORD"))),
		Bucket:        firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_S3_BUCKET")), "storyweave-media"),
		UseSSL:        resolveMediaUseSSL(env),
		PublicBaseURL: firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_PUBLIC_BASE_URL")), "http://localhost"+port+"/media"),
		Upload:        envBool("MEDIA_UPLOAD_VIDEOS", true),
		CacheDir:      strings.TrimSpace(os.Getenv("MEDIA_CACHE_DIR")),
		// 0 means bounded by entry count only.
		CacheDirMaxBytes: envInt64("MEDIA_CACHE_DIR_MAX_MB", 2048) << 20,
	}
}

func resolveMediaEndpoint(env string) string {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return firstNonEmpty(strings.TrimSpace(os.Getenv("MEDIA_MINIO_ENDPOINT")), "minio:9000")
	}
	return strings.TrimSpace(os.Getenv("MEDIA_S3_ENDPOINT"))
}

func resolveMediaUseSSL(env string) bool {
	if strings.EqualFold(strings.TrimSpace(env), "local") {
		return false
	}
	return envBool("MEDIA_S3_USE_SSL", true)
}

func loadProviderConfig() (ProviderConfig, error) {
	cfg := ProviderConfig{
		GeminiAPIKey:     firstNonEmpty(strings.TrimSpace(os.Getenv("GEMINI_API_KEY")), strings.TrimSpace(os.Getenv("GOOGLE_API_KEY"))),
		GeminiImageModel: strings.TrimSpace(os.Getenv("GEMINI_IMAGE_MODEL")),
		GeminiEditModel:  strings.TrimSpace(os.Getenv("GEMINI_EDIT_MODEL")),
		SoraBaseURL:      firstNonEmpty(strings.TrimSpace(os.Getenv("SORA_API_BASE")), "https://api.openai.com/v1"),
		SoraAPIKey:       firstNonEmpty(strings.TrimSpace(os.Getenv("SORA_API_KEY")), strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))),
		KlingBaseURL:     strings.TrimSpace(os.Getenv("KLING_API_BASE")),
		KlingAPIKey:      strings.TrimSpace(os.Getenv("KLING_API_KEY")),
		Burst:            1,
	}
	if raw := strings.TrimSpace(os.Getenv("PROVIDER_RPS")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v < 0 {
			return cfg, fmt.Errorf("invalid PROVIDER_RPS %q", raw)
		}
		cfg.RPS = v
	}
	if raw := strings.TrimSpace(os.Getenv("PROVIDER_BURST")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			return cfg, fmt.Errorf("invalid PROVIDER_BURST %q", raw)
		}
		cfg.Burst = v
	}
	return cfg, nil
}

func loadPollConfig() (PollConfig, error) {
	interval, err := envDuration("POLL_INTERVAL", 4*time.Second)
	if err != nil {
		return PollConfig{}, err
	}
	timeout, err := envDuration("POLL_TIMEOUT", 10*time.Minute)
	if err != nil {
		return PollConfig{}, err
	}
	return PollConfig{Interval: interval, Timeout: timeout, MaxErrors: 5}, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return d, nil
}

func envBool(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func envInt64(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
