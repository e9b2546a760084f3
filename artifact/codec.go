package artifact

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/rushteam/gcnrec/core"
)

// envelope 是落盘结构：元信息明文，表数据 gob 编码后 gzip 压缩。
type envelope struct {
	Meta       Meta
	Compressed []byte
}

type payload struct {
	UserIDs []string
	ItemIDs []string
	Users   []float64
	Items   []float64
}

// Encode 序列化模型文件，同时回填 Meta 的 Checksum / SizeBytes / SavedAt。
func Encode(a *Artifact) ([]byte, error) {
	if err := a.checkShape(); err != nil {
		return nil, err
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(payload{
		UserIDs: a.UserIDs,
		ItemIDs: a.ItemIDs,
		Users:   a.Users,
		Items:   a.Items,
	}); err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	sum := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress artifact: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	a.Meta.Checksum = hex.EncodeToString(sum[:])
	a.Meta.SizeBytes = int64(compressed.Len())
	a.Meta.SavedAt = time.Now()

	var out bytes.Buffer
	if err := gob.NewEncoder(&out).Encode(envelope{Meta: a.Meta, Compressed: compressed.Bytes()}); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return out.Bytes(), nil
}

// Decode 反序列化并校验 checksum 与结构，失败返回 core.ErrArtifactCorrupt。
func Decode(data []byte) (*Artifact, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: read envelope: %v", core.ErrArtifactCorrupt, err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(env.Compressed))
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", core.ErrArtifactCorrupt, err)
	}
	defer func() { _ = gzr.Close() }()
	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %v", core.ErrArtifactCorrupt, err)
	}

	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != env.Meta.Checksum {
		return nil, fmt.Errorf("%w: checksum mismatch: expected %s, got %s", core.ErrArtifactCorrupt, env.Meta.Checksum, got)
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %v", core.ErrArtifactCorrupt, err)
	}
	if env.Meta.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", core.ErrArtifactCorrupt, env.Meta.FormatVersion)
	}

	a := &Artifact{
		Meta:    env.Meta,
		UserIDs: p.UserIDs,
		ItemIDs: p.ItemIDs,
		Users:   p.Users,
		Items:   p.Items,
	}
	if err := a.checkShape(); err != nil {
		return nil, err
	}
	return a, nil
}
