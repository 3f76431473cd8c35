package queue

import (
	"database/sql"
	"time"
)

// timeLayout is fixed width so TEXT ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const taskColumns = "t.id, t.video_id, t.variant, t.status, t.progress, t.current_bitrate, t.retries, t.error, t.output_path, t.output_size, t.created_at, t.started_at, t.finished_at, v.path, v.original_name"

const taskFrom = "FROM tasks t JOIN videos v ON v.id = t.video_id"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(scanner rowScanner) (*Task, error) {
	var (
		task        Task
		status      string
		progress    sql.NullInt64
		bitrate     sql.NullString
		errMsg      sql.NullString
		outputPath  sql.NullString
		outputSize  sql.NullInt64
		createdRaw  string
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&task.ID,
		&task.VideoID,
		&task.Variant,
		&status,
		&progress,
		&bitrate,
		&task.Retries,
		&errMsg,
		&outputPath,
		&outputSize,
		&createdRaw,
		&startedRaw,
		&finishedRaw,
		&task.VideoPath,
		&task.VideoName,
	); err != nil {
		return nil, err
	}
	task.Status = Status(status)
	if progress.Valid {
		p := int(progress.Int64)
		task.Progress = &p
	}
	task.CurrentBitrate = bitrate.String
	task.Error = errMsg.String
	task.OutputPath = outputPath.String
	task.OutputSize = outputSize.Int64
	task.CreatedAt = parseTime(createdRaw)
	task.StartedAt = parseNullTime(startedRaw)
	task.FinishedAt = parseNullTime(finishedRaw)
	return &task, nil
}

const videoColumns = "id, original_name, size, path, created_at"

func scanVideo(scanner rowScanner) (*Video, error) {
	var (
		video      Video
		createdRaw string
	)
	if err := scanner.Scan(&video.ID, &video.OriginalName, &video.Size, &video.Path, &createdRaw); err != nil {
		return nil, err
	}
	video.CreatedAt = parseTime(createdRaw)
	return &video, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func parseTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t
	}
	return time.Time{}
}

func parseNullTime(raw sql.NullString) *time.Time {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	t := parseTime(raw.String)
	if t.IsZero() {
		return nil
	}
	return &t
}
