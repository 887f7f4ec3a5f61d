package storage

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/andresmonc/polyempire-sub000/internal/domain"
)

const (
	MagicHeader string = `PEAR` // 4 байта
	Version1    uint32 = 1
)

// ArchiveFileHeader — это точное представление заголовка файла в памяти.
// binary.Write умеет писать это целиком, так как тут нет слайсов и строк,
// только массивы и числа. Строки идут следом с длинами из заголовка.
type ArchiveFileHeader struct {
	Magic       [4]byte // 4 байта
	Version     uint32  // 4 байта
	CreatedAt   int64   // 8 байт
	ArchivedAt  int64   // 8 байт
	Turns       int32   // 4 байта
	PlayerCount int32   // 4 байта
	ActionCount int32   // 4 байта
	SessionLen  uint8   // 1 байт
	NameLen     uint16  // 2 байта
}

// ActionHeader — заголовок каждой записи действия.
type ActionHeader struct {
	Timestamp  int64  // 8, unix nanos
	PlayerID   int64  // 8
	TypeLen    uint8  // 1
	PayloadLen uint16 // 2
}

// ArchiveService пишет и читает архивы завершенных партий.
// Файлы сжимаются zstd: логи длинных партий хорошо жмутся.
type ArchiveService struct {
	SaveDir string
	index   *Index // может быть nil — архив без индекса
}

func NewArchiveService(dir, indexPath string) (*ArchiveService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &ArchiveService{SaveDir: dir}
	if indexPath != "" {
		ix, err := OpenIndex(indexPath)
		if err != nil {
			return nil, err
		}
		s.index = ix
	}
	return s, nil
}

// Save сохраняет архив на диск и регистрирует его в индексе.
// Возвращает путь записанного файла.
func (s *ArchiveService) Save(arch *domain.SessionArchive) (string, error) {
	filename := fmt.Sprintf("game_%s_%d.pear", arch.SessionID, arch.ArchivedAt)
	path := filepath.Join(s.SaveDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return "", err
	}

	if err := writeBinary(enc, arch); err != nil {
		enc.Close()
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}

	if s.index != nil {
		meta := ArchiveMeta{
			SessionID:  arch.SessionID,
			Name:       arch.Name,
			Turns:      arch.Turns,
			Players:    arch.PlayerCount,
			Path:       path,
			ArchivedAt: arch.ArchivedAt,
		}
		if err := s.index.Record(meta); err != nil {
			return "", err
		}
	}

	return path, nil
}

// Close закрывает индекс (если он был открыт).
func (s *ArchiveService) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

func writeBinary(w io.Writer, arch *domain.SessionArchive) error {
	sessionBytes := []byte(arch.SessionID)
	nameBytes := []byte(arch.Name)
	if len(sessionBytes) > 255 {
		return fmt.Errorf("session id too long: %d", len(sessionBytes))
	}
	if len(nameBytes) > 65535 {
		return fmt.Errorf("name too long: %d", len(nameBytes))
	}

	// 1. Подготавливаем и пишем ГЛОБАЛЬНЫЙ ЗАГОЛОВОК
	header := ArchiveFileHeader{
		Version:     Version1,
		CreatedAt:   arch.CreatedAt,
		ArchivedAt:  arch.ArchivedAt,
		Turns:       int32(arch.Turns),
		PlayerCount: int32(arch.PlayerCount),
		ActionCount: int32(len(arch.Actions)),
		SessionLen:  uint8(len(sessionBytes)),
		NameLen:     uint16(len(nameBytes)),
	}
	copy(header.Magic[:], MagicHeader) // Копируем строку в массив [4]byte

	if err := binary.Write(w, binary.LittleEndian, &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(sessionBytes); err != nil {
		return err
	}
	if _, err := w.Write(nameBytes); err != nil {
		return err
	}

	// 2. Пишем действия
	for _, act := range arch.Actions {
		typeBytes := []byte(act.Intent.Type)
		if len(typeBytes) > 255 {
			return fmt.Errorf("intent type too long: %d", len(typeBytes))
		}

		payloadLen := len(act.Intent.Payload)
		if payloadLen > 65535 {
			return fmt.Errorf("payload too long: %d", payloadLen)
		}

		actHeader := ActionHeader{
			Timestamp:  act.Timestamp.UnixNano(),
			PlayerID:   act.PlayerID,
			TypeLen:    uint8(len(typeBytes)),
			PayloadLen: uint16(payloadLen),
		}

		if err := binary.Write(w, binary.LittleEndian, &actHeader); err != nil {
			return err
		}
		if _, err := w.Write(typeBytes); err != nil {
			return err
		}
		if payloadLen > 0 {
			if _, err := w.Write(act.Intent.Payload); err != nil {
				return err
			}
		}
	}

	return nil
}
