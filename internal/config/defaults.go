package config

const (
	defaultDataDir                   = "~/.local/share/histoflow"
	defaultLogDir                    = "~/.local/share/histoflow/logs"
	defaultAPIBind                   = "127.0.0.1:7519"
	defaultMaxWashLoops              = 2
	defaultSlot                      = 1
	defaultSimulationPassRate        = 0.7
	defaultSimulationStepDelayMS     = 50
	defaultNotifyRequestTimeout      = 10
	defaultRedisStream               = "histoflow:events"
	defaultRedisMaxLen               = 4096
	defaultLogFormat                 = "console"
	defaultLogLevel                  = "info"
	defaultWorkflowHeartbeatInterval = 15
	defaultWorkflowHeartbeatTimeout  = 120
)

func defaultProtocols() []string {
	return []string{"Receptor42", "Receptor0815"}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Bench: Bench{
			Protocols:    defaultProtocols(),
			MaxWashLoops: defaultMaxWashLoops,
			PickupSlot:   defaultSlot,
			HandlerSlot:  defaultSlot,
			DropoffSlot:  defaultSlot,
		},
		Workflow: Workflow{
			HeartbeatInterval: defaultWorkflowHeartbeatInterval,
			HeartbeatTimeout:  defaultWorkflowHeartbeatTimeout,
		},
		Simulation: Simulation{
			PassRate:    defaultSimulationPassRate,
			StepDelayMS: defaultSimulationStepDelayMS,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Runs:           true,
			Slides:         true,
			Errors:         true,
		},
		Events: Events{
			RedisStream: defaultRedisStream,
			RedisMaxLen: defaultRedisMaxLen,
			LogMirror:   true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
