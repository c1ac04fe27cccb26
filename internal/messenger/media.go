package messenger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-telegram/bot/models"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ErrUnknownAsset ассет не описан в конфигурации
var ErrUnknownAsset = errors.New("unknown media asset")

// MediaCache отправляет картинки по логическому имени и запоминает file_id,
// выданный Telegram после первой загрузки. Ошибка отправки по file_id
// сбрасывает запись и повторяет отправку загрузкой файла.
type MediaCache struct {
	messenger Messenger
	assets    map[string]string
	ids       *lru.Cache[string, string]
	readFile  func(name string) ([]byte, error)
	logger    *zap.Logger
}

// NewMediaCache создаёт кэш. assets: имя ассета -> путь к файлу.
func NewMediaCache(m Messenger, assets map[string]string, size int, logger *zap.Logger) (*MediaCache, error) {
	if size <= 0 {
		size = 64
	}
	ids, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create media cache: %w", err)
	}
	return &MediaCache{
		messenger: m,
		assets:    assets,
		ids:       ids,
		readFile:  os.ReadFile,
		logger:    logger,
	}, nil
}

// Has проверяет, что ассет описан
func (c *MediaCache) Has(asset string) bool {
	_, ok := c.assets[asset]
	return ok
}

// FileID возвращает закэшированный file_id
func (c *MediaCache) FileID(asset string) (string, bool) {
	return c.ids.Get(asset)
}

// Invalidate сбрасывает file_id ассета
func (c *MediaCache) Invalidate(asset string) {
	c.ids.Remove(asset)
}

// Send отправляет ассет и возвращает id сообщения
func (c *MediaCache) Send(ctx context.Context, chatID int64, asset, caption string, markup models.ReplyMarkup) (int, error) {
	path, ok := c.assets[asset]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}

	if fileID, ok := c.ids.Get(asset); ok {
		msgID, _, err := c.messenger.SendPhoto(ctx, chatID, PhotoRef{FileID: fileID}, caption, markup)
		if err == nil {
			return msgID, nil
		}
		c.logger.Warn("Cached file id rejected, uploading again",
			zap.String("asset", asset),
			zap.Error(err))
		c.Invalidate(asset)
	}

	data, err := c.readFile(path)
	if err != nil {
		return 0, fmt.Errorf("read asset %s: %w", asset, err)
	}

	msgID, fileID, err := c.messenger.SendPhoto(ctx, chatID, PhotoRef{Name: filepath.Base(path), Data: data}, caption, markup)
	if err != nil {
		return 0, err
	}
	if fileID != "" {
		c.ids.Add(asset, fileID)
	}
	return msgID, nil
}
