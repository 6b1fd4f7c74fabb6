package config

const (
	defaultConfigPath               = "~/.config/sentinel/config.toml"
	defaultStateDir                 = "~/.local/share/sentinel"
	defaultLogDir                   = "~/.local/share/sentinel/logs"
	defaultAnalysisFile             = "~/.local/share/sentinel/llm_analysis_output.txt"
	defaultSourceProvider           = "graylog"
	defaultSourceLimit              = 500
	defaultSourceMaxLines           = 50
	defaultSourceTimeoutSeconds     = 30
	defaultAnalyzerProvider         = "ollama"
	defaultOllamaBaseURL            = "http://localhost:11434"
	defaultOpenAIBaseURL            = "http://localhost:8080/v1/chat/completions"
	defaultAnalyzerModel            = "llama3.2"
	defaultAnalyzerMode             = "blocking"
	defaultAnalyzerNumCtx           = 4096
	defaultBlockingTimeoutSeconds   = 120
	defaultStreamingTimeoutSeconds  = 900
	defaultAnalyzerTitle            = "Sentinel"
	defaultPollIntervalSeconds      = 60
	defaultLookbackMinutes          = 10
	defaultHeartbeatIntervalMinutes = 240
	defaultEscalationMarker         = "ALERT"
	defaultNotifyRequestTimeout     = 10
	defaultHAService                = "notify"
	defaultStateBackend             = "file"
	defaultArchivePrefix            = "sentinel"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultLogRetentionDays         = 14
)

// DefaultSystemPrompt instructs the model to answer NORMAL for routine batches
// and to lead with the escalation marker otherwise.
const DefaultSystemPrompt = `You are a security and reliability expert reviewing a batch of system logs.
If the logs represent normal system operation, reply ONLY with the word NORMAL.
If you detect an anomaly, security threat, or hardware failure, start your reply with "ALERT:" followed by a concise summary, the most significant log lines, and one recommended next action.`

// Default returns a Config populated with repository defaults. Fields that have
// environment fallbacks (source endpoints, analyzer URL/model, poll interval)
// are left empty here and filled during normalization.
func Default() Config {
	return Config{
		Paths: Paths{
			StateDir: defaultStateDir,
			LogDir:   defaultLogDir,
		},
		Source: Source{
			Provider: defaultSourceProvider,
			Limit:    defaultSourceLimit,
			MaxLines: defaultSourceMaxLines,
		},
		Analyzer: Analyzer{
			Provider:     defaultAnalyzerProvider,
			Mode:         defaultAnalyzerMode,
			SystemPrompt: DefaultSystemPrompt,
			NumCtx:       defaultAnalyzerNumCtx,
			Title:        defaultAnalyzerTitle,
		},
		Poller: Poller{
			LookbackMinutes:          defaultLookbackMinutes,
			HeartbeatIntervalMinutes: defaultHeartbeatIntervalMinutes,
		},
		Escalation: Escalation{
			Markers: []string{defaultEscalationMarker},
		},
		Output: Output{
			AnalysisFile: defaultAnalysisFile,
			History:      true,
		},
		Archive: Archive{
			Prefix: defaultArchivePrefix,
			UseSSL: true,
		},
		Notifications: Notifications{
			HAService:      defaultHAService,
			RequestTimeout: defaultNotifyRequestTimeout,
		},
		State: State{
			Backend: defaultStateBackend,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
