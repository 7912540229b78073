package payments

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Channel string

const (
	ChannelSuccess Channel = "success"
	ChannelFail    Channel = "fail"
	ChannelCancel  Channel = "cancel"
	ChannelIPN     Channel = "ipn"
)

// CallbackEvent is one inbound callback as received, kept for audit and
// replay. Rows are never updated.
type CallbackEvent struct {
	ID            string         `gorm:"type:char(36);primaryKey"`
	Channel       Channel        `gorm:"type:varchar(16);not null"`
	TransactionID string         `gorm:"type:varchar(64);not null;index:ix_callback_events_transaction_id"`
	ValidationID  *string        `gorm:"type:varchar(128)"`
	Payload       datatypes.JSON `gorm:"type:json;not null"`
	ResultStatus  *Status        `gorm:"type:varchar(16)"`
	ProcessError  *string        `gorm:"type:varchar(255)"`
	ReceivedAt    time.Time      `gorm:"not null"`
}

func (CallbackEvent) TableName() string { return "callback_events" }

func (c *Coordinator) recordCallback(ctx context.Context, ch Channel, cb Callback, out Outcome, procErr error) {
	payload, err := json.Marshal(cb.Payload)
	if err != nil || cb.Payload == nil {
		payload = []byte("{}")
	}

	ev := CallbackEvent{
		ID:            uuid.NewString(),
		Channel:       ch,
		TransactionID: cb.TranID,
		ValidationID:  optional(cb.ValID),
		Payload:       datatypes.JSON(payload),
		ReceivedAt:    c.now(),
	}
	if out.Transaction.TransactionID != "" {
		st := out.Transaction.Status
		ev.ResultStatus = &st
	}
	if procErr != nil {
		msg := truncate(procErr.Error(), 250)
		ev.ProcessError = &msg
	}

	if err := c.store.RecordCallback(ctx, ev); err != nil {
		c.logger.ErrorContext(ctx, "failed to record callback", "channel", ch, "tran_id", cb.TranID, "err", err)
	}
}
