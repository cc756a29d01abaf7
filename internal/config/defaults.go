package config

const (
	defaultUploadDir               = "~/.local/share/clipstream/uploads"
	defaultLogDir                  = "~/.local/share/clipstream/logs"
	defaultAPIBind                 = "127.0.0.1:7480"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultTranscodeTickMillis     = 500
	defaultTranscodeDurationMillis = 4000
	defaultProbeTimeoutSeconds     = 30
	defaultAnalyzeTimeoutSeconds   = 30
	defaultEventBuffer             = 32
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
			APIBind:   defaultAPIBind,
		},
		Pipeline: Pipeline{
			TranscodeTickMillis:     defaultTranscodeTickMillis,
			TranscodeDurationMillis: defaultTranscodeDurationMillis,
			ProbeTimeoutSeconds:     defaultProbeTimeoutSeconds,
			AnalyzeTimeoutSeconds:   defaultAnalyzeTimeoutSeconds,
			EventBuffer:             defaultEventBuffer,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
