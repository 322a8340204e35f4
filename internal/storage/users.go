package storage

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const timeLayout = "2006-01-02 15:04:05"

// FileRecorder keeps the interaction log in a flat pipe-delimited file:
//
//	user_id|name|username|timestamp|file_type|first/repeat|count
//
// The count for a repeat user is recomputed on every write by scanning the
// file from the start and taking the FIRST line whose user id matches. This
// first-match-wins scan is a deliberate contract: reordering lines in the
// file can change the derived count.
type FileRecorder struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

func NewFileRecorder(path string) *FileRecorder {
	return &FileRecorder{path: path, now: time.Now}
}

func (r *FileRecorder) Record(userID int64, name, username, fileType string) (Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inter := Interaction{
		UserID:    userID,
		Name:      name,
		Username:  username,
		Timestamp: r.now(),
		FileType:  fileType,
		First:     true,
		Count:     1,
	}

	prev, found, err := r.findUser(userID)
	if err != nil {
		return Interaction{}, err
	}
	if found {
		inter.First = false
		inter.Count = prev + 1
	}

	if err := r.append(inter); err != nil {
		return Interaction{}, err
	}
	return inter, nil
}

// findUser returns the count field of the first matching line. Lines with
// fewer than 7 fields count as 1 (so the next record gets 2), matching the
// behavior for legacy lines without a count.
func (r *FileRecorder) findUser(userID int64) (count int, found bool, err error) {
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("open users file: %w", err)
	}
	defer f.Close()

	id := strconv.FormatInt(userID, 10)
	s := bufio.NewScanner(f)
	for s.Scan() {
		parts := strings.Split(strings.TrimSpace(s.Text()), "|")
		if len(parts) < 3 || parts[0] != id {
			continue
		}
		count = 1
		if len(parts) >= 7 {
			if n, err := strconv.Atoi(parts[6]); err == nil {
				count = n
			}
		}
		return count, true, nil
	}
	if err := s.Err(); err != nil {
		return 0, false, fmt.Errorf("scan users file: %w", err)
	}
	return 0, false, nil
}

func (r *FileRecorder) append(inter Interaction) error {
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open append: %w", err)
	}
	defer f.Close()

	username := inter.Username
	if username == "" {
		username = "N/A"
	}
	fileType := inter.FileType
	if fileType == "" {
		fileType = "N/A"
	}
	requestType := "repeat"
	if inter.First {
		requestType = "first"
	}

	line := fmt.Sprintf("%d|%s|%s|%s|%s|%s|%d\n",
		inter.UserID, inter.Name, username,
		inter.Timestamp.Format(timeLayout), fileType, requestType, inter.Count)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("append users file: %w", err)
	}
	return nil
}

// Stats returns the number of distinct users and the total number of logged
// requests. Used by the daily report.
func (r *FileRecorder) Stats() (users int, requests int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("open users file: %w", err)
	}
	defer f.Close()

	seen := make(map[string]bool)
	s := bufio.NewScanner(f)
	for s.Scan() {
		parts := strings.Split(strings.TrimSpace(s.Text()), "|")
		if len(parts) < 3 {
			continue
		}
		seen[parts[0]] = true
		requests++
	}
	if err := s.Err(); err != nil {
		return 0, 0, fmt.Errorf("scan users file: %w", err)
	}
	return len(seen), requests, nil
}
