// Package broker imports users published on a NATS subject.
package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	customerrors "github.com/akashipov/userdirectory/internal/errors"
	"github.com/akashipov/userdirectory/internal/storage/user"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const handleTimeout = 5 * time.Second

type Creator interface {
	Create(ctx context.Context, in user.Input) (*user.User, error)
}

// Reply is sent back when the publisher used request/reply.
type Reply struct {
	ID    string                    `json:"id,omitempty"`
	Error *customerrors.CustomError `json:"error,omitempty"`
}

type Importer struct {
	svc Creator
	log *zap.SugaredLogger
	sub *nats.Subscription
}

func NewImporter(svc Creator, log *zap.SugaredLogger) *Importer {
	return &Importer{svc: svc, log: log}
}

func (i *Importer) Start(conn *nats.Conn, subject string) error {
	sub, err := conn.Subscribe(subject, i.Handle)
	if err != nil {
		return fmt.Errorf("Problem with subscribing to '%s': %w", subject, err)
	}
	i.sub = sub
	i.log.Infof("Importing users from subject '%s'", subject)
	return nil
}

// Handle creates one user per message. Bad or rejected messages are logged
// and skipped.
func (i *Importer) Handle(m *nats.Msg) {
	rep := i.process(m.Data)
	if m.Reply == "" {
		return
	}
	data, err := json.Marshal(rep)
	if err != nil {
		i.log.Errorf("Problem with encoding reply: %s", err.Error())
		return
	}
	if err = m.Respond(data); err != nil {
		i.log.Errorf("Problem with responding to '%s': %s", m.Reply, err.Error())
	}
}

func (i *Importer) process(data []byte) Reply {
	var in user.Input
	if err := json.Unmarshal(data, &in); err != nil {
		i.log.Infof("Skip message with bad payload: %s", err.Error())
		return Reply{Error: &customerrors.CustomError{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
			Cause:   err.Error(),
		}}
	}
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	u, err := i.svc.Create(ctx, in)
	if err != nil {
		cErr := customerrors.FromError(err, "importing")
		i.log.Infof("Skip user '%s': %s", in.Email, cErr.Error())
		return Reply{Error: cErr}
	}
	i.log.Infof("User '%s' imported as '%s'", u.Email, u.ID)
	return Reply{ID: u.ID}
}

func (i *Importer) Stop() error {
	if i.sub == nil {
		return nil
	}
	return i.sub.Unsubscribe()
}
