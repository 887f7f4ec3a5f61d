package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/andresmonc/polyempire-sub000/internal/domain"
	"github.com/andresmonc/polyempire-sub000/pkg/api"
)

// Load восстанавливает архив партии из файла.
func (s *ArchiveService) Load(path string) (*domain.SessionArchive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return readBinary(dec)
}

func readBinary(r io.Reader) (*domain.SessionArchive, error) {
	// 1. Читаем заголовок целиком
	var header ArchiveFileHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	// Валидация
	if string(header.Magic[:]) != MagicHeader {
		return nil, fmt.Errorf("invalid magic")
	}
	if header.Version != Version1 {
		return nil, fmt.Errorf("unsupported version: %d (expected %d)", header.Version, Version1)
	}

	sessionBuf := make([]byte, header.SessionLen)
	if _, err := io.ReadFull(r, sessionBuf); err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}
	nameBuf := make([]byte, header.NameLen)
	if _, err := io.ReadFull(r, nameBuf); err != nil {
		return nil, fmt.Errorf("failed to read name: %w", err)
	}

	arch := &domain.SessionArchive{
		SessionID:   string(sessionBuf),
		Name:        string(nameBuf),
		CreatedAt:   header.CreatedAt,
		ArchivedAt:  header.ArchivedAt,
		Turns:       int(header.Turns),
		PlayerCount: int(header.PlayerCount),
		Actions:     make([]domain.ActionRecord, header.ActionCount),
	}

	// 2. Читаем Actions
	for i := 0; i < int(header.ActionCount); i++ {
		var ah ActionHeader
		if err := binary.Read(r, binary.LittleEndian, &ah); err != nil {
			return nil, err
		}

		act := domain.ActionRecord{
			PlayerID:  ah.PlayerID,
			Timestamp: time.Unix(0, ah.Timestamp).UTC(),
		}

		typeBuf := make([]byte, ah.TypeLen)
		if _, err := io.ReadFull(r, typeBuf); err != nil {
			return nil, err
		}
		act.Intent = api.Intent{Type: string(typeBuf)}

		if ah.PayloadLen > 0 {
			act.Intent.Payload = make([]byte, ah.PayloadLen)
			if _, err := io.ReadFull(r, act.Intent.Payload); err != nil {
				return nil, err
			}
		} else {
			act.Intent.Payload = json.RawMessage{}
		}

		arch.Actions[i] = act
	}

	return arch, nil
}
