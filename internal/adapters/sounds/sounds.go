package sounds

import (
	"cmp"
	"context"
	"csbot/internal/adapters/file"
	"csbot/internal/core/domain"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

const DefaultRepoURL = "https://raw.githubusercontent.com/Metastruct/garrysmod-chatsounds/master/sound/"

type entry struct {
	Path string `json:"path"`
}

// Index holds the chatsound list, keyed by lower-case sound name. It is empty until Load succeeds.
type Index struct {
	listURL string
	repoURL string

	mutex  sync.RWMutex
	sounds map[string][]domain.Sound
	names  []string
}

func NewIndex(listURL, repoURL string) *Index {
	repoURL = cmp.Or(repoURL, DefaultRepoURL)
	if !strings.HasSuffix(repoURL, "/") {
		repoURL += "/"
	}

	return &Index{listURL: listURL, repoURL: repoURL}
}

// Load downloads the sound list and replaces the current index. The list is a JSON object mapping each sound
// name to its variants: {"name": [{"path": "chatsounds/..."}]}.
func (i *Index) Load(ctx context.Context) error {
	if i.listURL == "" {
		return fmt.Errorf("no sound list url configured")
	}

	data, err := file.DownloadFile(ctx, i.listURL)
	if err != nil {
		return fmt.Errorf("failed to download sound list: %w", err)
	}

	n, err := i.load(data)
	if err != nil {
		return err
	}

	log.Info().Int("sounds", n).Str("url", i.listURL).Msg("loaded sound list")

	return nil
}

func (i *Index) load(data []byte) (int, error) {
	var raw map[string][]entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return 0, fmt.Errorf("failed to decode sound list: %w", err)
	}

	sounds := make(map[string][]domain.Sound, len(raw))
	for name, entries := range raw {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		for _, e := range entries {
			if e.Path == "" {
				continue
			}
			sounds[key] = append(sounds[key], domain.Sound{Name: key, Path: e.Path})
		}
	}

	names := make([]string, 0, len(sounds))
	for name := range sounds {
		names = append(names, name)
	}
	slices.Sort(names)

	i.mutex.Lock()
	i.sounds = sounds
	i.names = names
	i.mutex.Unlock()

	return len(names), nil
}

func (i *Index) Loaded() bool {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	return i.sounds != nil
}

// Names returns every sound name in lexical order. The slice is shared and must not be modified.
func (i *Index) Names() []string {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	return i.names
}

func (i *Index) Variants(name string) ([]domain.Sound, bool) {
	i.mutex.RLock()
	defer i.mutex.RUnlock()

	v, ok := i.sounds[name]
	return v, ok
}

func (i *Index) URL(sound domain.Sound) string {
	return i.repoURL + (&url.URL{Path: sound.Path}).EscapedPath()
}
