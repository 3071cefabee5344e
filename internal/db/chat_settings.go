package db

import (
	"context"

	itypes "github.com/jehaby/smarthomebot/internal/types"
)

type ChatSetting struct {
	ChatID               int64              `json:"chat_id"`
	SnapshotIntervalSecs int64              `json:"snapshot_interval_secs"`
	SnapshotCameras      itypes.StringSlice `json:"snapshot_cameras"`
}

func (q *Queries) ListChatSettings(ctx context.Context) ([]ChatSetting, error) {
	const stmt = `SELECT chat_id, snapshot_interval_secs, snapshot_cameras
FROM chat_settings
ORDER BY chat_id`
	rows, err := q.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []ChatSetting
	for rows.Next() {
		var r ChatSetting
		if err := rows.Scan(&r.ChatID, &r.SnapshotIntervalSecs, &r.SnapshotCameras); err != nil {
			return nil, err
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (q *Queries) UpsertChatSetting(ctx context.Context, arg ChatSetting) error {
	const stmt = `INSERT INTO chat_settings (chat_id, snapshot_interval_secs, snapshot_cameras)
VALUES (?, ?, ?)
ON CONFLICT(chat_id) DO UPDATE SET
  snapshot_interval_secs=excluded.snapshot_interval_secs,
  snapshot_cameras=excluded.snapshot_cameras,
  updated_at=CURRENT_TIMESTAMP`
	_, err := q.db.ExecContext(ctx, stmt, arg.ChatID, arg.SnapshotIntervalSecs, arg.SnapshotCameras)
	return err
}

func (q *Queries) DeleteChatSettings(ctx context.Context) error {
	const stmt = `DELETE FROM chat_settings`
	_, err := q.db.ExecContext(ctx, stmt)
	return err
}
