package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

const maxPushBodyBytes = 1 << 20

// PushEnvelope is the JSON body Pub/Sub posts to push subscription endpoints.
type PushEnvelope struct {
	Message struct {
		Data        []byte            `json:"data"`
		Attributes  map[string]string `json:"attributes"`
		MessageID   string            `json:"messageId"`
		PublishTime string            `json:"publishTime"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// ErrMalformedPush reports a push body that cannot be decoded into a mail job.
// Such deliveries should be acknowledged so Pub/Sub stops retrying them.
var ErrMalformedPush = errors.New("jobs: malformed push message")

// DecodeMailPush reads a push envelope and unmarshals the mail job carried in its data.
func DecodeMailPush(r io.Reader) (services.MailJob, PushEnvelope, error) {
	var envelope PushEnvelope
	decoder := json.NewDecoder(io.LimitReader(r, maxPushBodyBytes))
	if err := decoder.Decode(&envelope); err != nil {
		return services.MailJob{}, envelope, fmt.Errorf("%w: %v", ErrMalformedPush, err)
	}
	if len(envelope.Message.Data) == 0 {
		return services.MailJob{}, envelope, fmt.Errorf("%w: empty data", ErrMalformedPush)
	}

	var job services.MailJob
	if err := json.Unmarshal(envelope.Message.Data, &job); err != nil {
		return services.MailJob{}, envelope, fmt.Errorf("%w: %v", ErrMalformedPush, err)
	}
	if job.JobID == "" {
		job.JobID = envelope.Message.Attributes["jobId"]
	}
	if err := job.Validate(); err != nil {
		return services.MailJob{}, envelope, fmt.Errorf("%w: %v", ErrMalformedPush, err)
	}
	return job, envelope, nil
}
