package storage

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Store manages the photos directory: timestamped filenames and a small
// json index tracking the capture count and the latest photo.
type Store struct {
	dir string
}

// CapturesInfo is the persisted index next to the photos.
type CapturesInfo struct {
	Captures    int    `json:"captures"`
	LatestImage string `json:"latestImage"`

	UpdateAt time.Time `json:"updateAt"`
}

// New creates the photos directory if needed and seeds the index file.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("photos dir can not be empty")
	}
	s := &Store{dir: dir}

	if err := os.MkdirAll(dir, DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("create photos dir: %w", err)
	}
	if err := s.checkInitInfo(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// NextPath returns the target path for a capture taken at t:
// photo_YYYYMMDD_HHMMSS.jpg. Two captures within the same second get a
// sequence suffix instead of silently overwriting the first.
func (s *Store) NextPath(t time.Time) string {
	base := imagePrefix + t.Format(timestampLayout)
	name := base + DefaultImageExt
	for i := 1; s.exists(name); i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, DefaultImageExt)
	}

	return path.Join(s.dir, name)
}

// Record updates the index after a successful capture.
func (s *Store) Record(imagePath string) error {
	info, err := s.loadInfo()
	if err != nil {
		return err
	}
	info.Captures++
	info.LatestImage = path.Base(imagePath)

	return s.dumpInfo(info)
}

// Latest returns the name of the most recent photo, or "" when none exists.
func (s *Store) Latest() (string, error) {
	info, err := s.loadInfo()
	if err != nil {
		return "", err
	}

	return info.LatestImage, nil
}

// Count returns the number of recorded captures.
func (s *Store) Count() (int, error) {
	info, err := s.loadInfo()
	if err != nil {
		return 0, err
	}

	return info.Captures, nil
}

// ListImages returns the photo filenames in the directory.
func (s *Store) ListImages() ([]string, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var res []string
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		if !strings.HasSuffix(file.Name(), DefaultImageExt) {
			continue
		}
		res = append(res, file.Name())
	}

	return res, nil
}

func (s *Store) exists(name string) bool {
	_, err := os.Stat(path.Join(s.dir, name))
	return err == nil
}

func (s *Store) loadInfo() (*CapturesInfo, error) {
	data, err := os.ReadFile(s.infoPath())
	if err != nil {
		return nil, fmt.Errorf("read captures info err: %w", err)
	}
	info := &CapturesInfo{}
	if err = json.Unmarshal(data, info); err != nil {
		return nil, fmt.Errorf("unmarshal captures info err: %w", err)
	}

	return info, nil
}

func (s *Store) dumpInfo(info *CapturesInfo) error {
	info.UpdateAt = time.Now()
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}

	return os.WriteFile(s.infoPath(), data, DefaultFilePerm)
}

func (s *Store) infoPath() string {
	return path.Join(s.dir, DefaultInfoFile)
}

func (s *Store) checkInitInfo() error {
	_, err := os.Stat(s.infoPath())
	if os.IsNotExist(err) {
		return s.dumpInfo(&CapturesInfo{})
	}

	return err
}
