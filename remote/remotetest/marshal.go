package remotetest

import (
	"encoding/json"

	"github.com/bytedance/sonic"

	"boardsync/domain"
)

func marshalRow(task domain.Task) (json.RawMessage, error) {
	data, err := sonic.ConfigStd.Marshal(task)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(data), nil
}
