package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Task describes one encode task in a transport-friendly format.
type Task struct {
	ID             string `json:"id"`
	VideoID        string `json:"videoId"`
	Variant        string `json:"variant"`
	Status         string `json:"status"`
	Progress       *int   `json:"progress"`
	CurrentBitrate string `json:"currentBitrate,omitempty"`
	Retries        int    `json:"retries"`
	Error          string `json:"error,omitempty"`
	OutputPath     string `json:"outputPath,omitempty"`
	OutputSize     int64  `json:"outputSize,omitempty"`
	DownloadURL    string `json:"downloadUrl,omitempty"`
	CreatedAt      string `json:"createdAt,omitempty"`
	StartedAt      string `json:"startedAt,omitempty"`
	FinishedAt     string `json:"finishedAt,omitempty"`
}

// Video describes an uploaded source with its tasks.
type Video struct {
	ID           string `json:"id"`
	OriginalName string `json:"originalName"`
	Size         int64  `json:"size"`
	Path         string `json:"path"`
	CreatedAt    string `json:"createdAt,omitempty"`
	Tasks        []Task `json:"tasks"`
}

// ProcessRequest is the body of POST /process.
type ProcessRequest struct {
	VideoID  string   `json:"videoId"`
	Variants []string `json:"variants"`
}

// MessageResponse is returned by destructive endpoints.
type MessageResponse struct {
	Message string `json:"message"`
}

// ClearResponse reports what a clear removed.
type ClearResponse struct {
	Message string `json:"message"`
	Videos  int64  `json:"videos"`
	Tasks   int64  `json:"tasks"`
	Files   int    `json:"files"`
}

// WorkflowStatus summarizes scheduler execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	InFlight    int            `json:"inFlight"`
	Concurrency int            `json:"concurrency"`
	QueueStats  map[string]int `json:"queueStats"`
	Videos      int            `json:"videos"`
	LastError   string         `json:"lastError,omitempty"`
	LastTask    *Task          `json:"lastTask,omitempty"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Path        string `json:"path,omitempty"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	StartedAt    string             `json:"startedAt,omitempty"`
	DatabasePath string             `json:"databasePath"`
	LockFilePath string             `json:"lockFilePath"`
	APIBind      string             `json:"apiBind,omitempty"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}
