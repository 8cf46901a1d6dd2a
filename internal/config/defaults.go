package config

const (
	defaultOutputDir      = "~/.local/share/jigpipe/output"
	defaultLogDir         = "~/.local/share/jigpipe/logs"
	defaultOutputCSV      = "~/.local/share/jigpipe/records.csv"
	defaultRemoteTarget   = "release"
	defaultRequestTimeout = 45
	defaultRetryAttempts  = 5
	defaultAlbumOrigin    = "https://www.jitap.net"
	defaultAlbumsPerPage  = 100
	defaultFFmpegBinary   = "ffmpeg"
	defaultSampleRate     = 44100
	defaultMaxTasks       = 8
	defaultLogLevel       = "info"
	defaultLogFormat      = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
			OutputCSV: defaultOutputCSV,
		},
		Platform: Platform{
			RemoteTarget:   defaultRemoteTarget,
			RequestTimeout: defaultRequestTimeout,
			RetryAttempts:  defaultRetryAttempts,
		},
		Albums: Albums{
			Origin:  defaultAlbumOrigin,
			PerPage: defaultAlbumsPerPage,
		},
		Media: Media{
			FFmpegBinary: defaultFFmpegBinary,
			SampleRate:   defaultSampleRate,
		},
		Workflow: Workflow{
			MaxTasks: defaultMaxTasks,
		},
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
		Verbose:   true,
	}
}
