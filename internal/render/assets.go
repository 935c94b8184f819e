package render

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"storyreel/internal/services"
)

var (
	videoExtensions = map[string]bool{".mp4": true, ".mov": true, ".mkv": true, ".webm": true}
	musicExtensions = map[string]bool{".mp3": true, ".m4a": true, ".wav": true, ".flac": true, ".ogg": true}
)

// AssetPair is the background footage and music track chosen for one story.
type AssetPair struct {
	VideoPath string
	MusicPath string
}

// SelectAssets picks background footage and a music track from the assets
// library. Selection hashes the story ID so re-rendering the same story uses
// the same assets while different stories spread across the library.
func SelectAssets(assetsDir, storyID string) (AssetPair, error) {
	videos, err := listAssets(filepath.Join(assetsDir, "video"), videoExtensions)
	if err != nil {
		return AssetPair{}, err
	}
	music, err := listAssets(filepath.Join(assetsDir, "music"), musicExtensions)
	if err != nil {
		return AssetPair{}, err
	}
	if len(videos) == 0 {
		return AssetPair{}, services.Wrap(services.ErrInvalidInput, "render", "select assets",
			fmt.Sprintf("no background footage in %s", filepath.Join(assetsDir, "video")), nil)
	}
	if len(music) == 0 {
		return AssetPair{}, services.Wrap(services.ErrInvalidInput, "render", "select assets",
			fmt.Sprintf("no music tracks in %s", filepath.Join(assetsDir, "music")), nil)
	}

	return AssetPair{
		VideoPath: videos[assetIndex(storyID, "video", len(videos))],
		MusicPath: music[assetIndex(storyID, "music", len(music))],
	}, nil
}

func listAssets(dir string, extensions map[string]bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, services.Wrap(services.ErrTransient, "render", "select assets",
			fmt.Sprintf("list assets in %s", dir), err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if extensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func assetIndex(storyID, kind string, count int) int {
	h := fnv.New32a()
	h.Write([]byte(kind))
	h.Write([]byte(storyID))
	return int(h.Sum32() % uint32(count))
}
