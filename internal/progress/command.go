package progress

import (
	"time"

	"github.com/simsta2/modus-klar/internal/model"
	"github.com/simsta2/modus-klar/utils"
)

// CommandKind 存储变更类型
type CommandKind string

const (
	CommandDeleteDailyRecords    CommandKind = "delete_daily_records"
	CommandDeleteArtifacts       CommandKind = "delete_artifacts"
	CommandSetChallengeStartDate CommandKind = "set_challenge_start_date"
)

// Command 一条存储变更。
// DeleteArtifacts 使用 Statuses，SetChallengeStartDate 使用 Date（同时把 current_day 置为 1）。
type Command struct {
	Date     time.Time
	Kind     CommandKind
	Statuses []model.SlotStatus
}

// ResetCommands 失败重置：清空记录、删除待审和被拒的视频、从今天重新开始
func ResetCommands(today time.Time) []Command {
	return []Command{
		{Kind: CommandDeleteDailyRecords},
		{Kind: CommandDeleteArtifacts, Statuses: []model.SlotStatus{model.SlotPending, model.SlotRejected}},
		{Kind: CommandSetChallengeStartDate, Date: utils.DateOf(today)},
	}
}

// RestartCommands 完成 30 天后重新开始：已通过的视频保留
func RestartCommands(today time.Time) []Command {
	return []Command{
		{Kind: CommandDeleteDailyRecords},
		{Kind: CommandDeleteArtifacts, Statuses: []model.SlotStatus{model.SlotPending}},
		{Kind: CommandSetChallengeStartDate, Date: utils.DateOf(today)},
	}
}
