package train

// Command names understood by the backend's /train endpoint.
const (
	CommandConfigure = "configure"
	CommandStart     = "start"
	CommandPause     = "pause"
	CommandResume    = "resume"
	CommandStop      = "stop"
	CommandStepBatch = "step_batch"
	CommandStepEpoch = "step_epoch"
	CommandGetStatus = "get_status"
)

// Command is an outbound client->server control frame. Commands are
// fire-and-forget: there is no request/response correlation.
type Command struct {
	Command string  `json:"command"`
	Config  *Config `json:"config,omitempty"`
}

// Configure builds a configure command carrying cfg.
func Configure(cfg Config) Command {
	return Command{Command: CommandConfigure, Config: &cfg}
}

// Start builds a start command.
func Start() Command { return Command{Command: CommandStart} }

// Pause builds a pause command.
func Pause() Command { return Command{Command: CommandPause} }

// Resume builds a resume command.
func Resume() Command { return Command{Command: CommandResume} }

// Stop builds a stop command.
func Stop() Command { return Command{Command: CommandStop} }

// StepBatch builds a single-batch step command.
func StepBatch() Command { return Command{Command: CommandStepBatch} }

// StepEpoch builds a single-epoch step command.
func StepEpoch() Command { return Command{Command: CommandStepEpoch} }

// OptimisticStatus returns the local status guess to apply immediately after
// sending the command, for UI feedback only. The server's status messages
// remain authoritative and overwrite the guess. The second return is false
// when the command implies no status change.
func (c Command) OptimisticStatus() (Status, bool) {
	switch c.Command {
	case CommandStart, CommandResume:
		return StatusRunning, true
	case CommandPause:
		return StatusPaused, true
	case CommandStop:
		return StatusStopping, true
	}
	return "", false
}
