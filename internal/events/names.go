package events

// Workflow lifecycle events emitted by the orchestrator.
const (
	WorkflowStart      = "histoflow.workflow_start"
	ProtocolStart      = "histoflow.protocol_start"
	ProtocolComplete   = "histoflow.protocol_complete"
	WorkflowComplete   = "histoflow.workflow_complete"
	SlideProtocolStart = "histoflow.slide_protocol_start"
	SlideComplete      = "histoflow.slide_complete"
	SlideFailed        = "histoflow.slide_failed"
	SlideAborted       = "histoflow.slide_aborted"
)

// Robot arm events.
const (
	RobotMoveStart    = "robot.move_start"
	RobotMovePickup   = "robot.move_pickup"
	RobotCloseGripper = "robot.close_gripper"
	RobotOpenGripper  = "robot.open_gripper"
	RobotMove         = "robot.move"
	RobotSafety       = "robot.safety"
)

// Liquid handler events.
const (
	StainerProtocolSet = "stainer.protocol_set"
	StainerStain       = "stainer.stain"
	StainerWash        = "stainer.wash"
)

// Imaging events.
const (
	ImagerSafety   = "imager.safety"
	ImagerEvaluate = "imager.evaluate"
	ImagerScan     = "imager.scan"
)

// Analyzer events.
const (
	AnalyzerAnalyze = "analyzer.analyze"
	AnalyzerReport  = "analyzer.report"
)
