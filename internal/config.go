package internal

import "time"

// Config is the server's environment configuration, loaded through
// Netflix/go-env in the binaries.
type Config struct {
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	HistoryLimit         int           `env:"HISTORY_LIMIT,default=50"`
	PageSize             *int          `env:"PAGE_SIZE"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	TokenSecret          string        `env:"TOKEN_SECRET,required=true"`
	TokenIssuer          string        `env:"TOKEN_ISSUER,default=chat-relay"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
}
