package domain

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type CreateUserMailData struct {
	FullName string `json:"fullName"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type RunFinishedMailData struct {
	FullName    string    `json:"fullName"`
	RunID       int64     `json:"runID"`
	ProblemName string    `json:"problemName"`
	Status      RunStatus `json:"status"`
	Objective   float64   `json:"objective"`
	Valid       bool      `json:"valid"`
	Message     string    `json:"message"`
}
