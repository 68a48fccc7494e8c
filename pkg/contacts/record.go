package contacts

import (
	"encoding/json"
	"fmt"

	"github.com/smartreplyhq/smartreply/pkg/privacy"
)

func encodeRecord(rec privacy.EncryptedRecord) ([]byte, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode encrypted record: %w", err)
	}
	return data, nil
}

func decodeRecord(data []byte, rec *privacy.EncryptedRecord) error {
	if err := json.Unmarshal(data, rec); err != nil {
		return fmt.Errorf("decode encrypted record: %w", err)
	}
	return nil
}
