package ws

const (
	// client - server
	MsgFail           = "fail"
	MsgSuccess        = "success"
	MsgComplete       = "complete"
	MsgAnswer         = "answer"
	MsgCloseFeedback  = "close_feedback"
	MsgCloseEducation = "close_education"
	MsgPing           = "ping"

	// server - client
	MsgReady = "ready"
	MsgState = "state"
	MsgPong  = "pong"
	MsgError = "error"
)
