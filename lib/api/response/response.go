package response

import "unistuhelper/lib/clock"

// Response is the body of every failed request.
type Response struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

func Error(message string) Response {
	return Response{
		Error:     message,
		Timestamp: clock.Now(),
	}
}

type Status struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func Ok(status string) Status {
	return Status{
		Status:    status,
		Timestamp: clock.Now(),
	}
}
