// Package media defines the contract with the media extraction backend: the
// metadata record it produces, and how to locate the file it downloaded.
package media

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mirrorbeam/social-archiver/generic"
)

var ErrFileNotFound = errors.New("downloaded file not found")

// VideoExtensions are the file extensions considered to be video output. Used
// to filter out metadata artifacts (.info.json, thumbnails, .part files) when
// globbing for a downloaded file.
var VideoExtensions = generic.NewSet(".mp4", ".mkv", ".webm", ".flv", ".avi", ".mov", ".ts")

// A RequestedDownload is an extraction backend sub-record describing one file
// that was actually written, e.g. a merged format.
type RequestedDownload struct {
	Filepath string `json:"filepath"`
}

// Info is the metadata record returned by an extraction backend for one URL.
// Field names follow the backend's own info dictionary; different backends
// populate different subsets, so all lookups go through the accessor methods.
type Info struct {
	ID           string `json:"id"`
	DisplayID    string `json:"display_id"`
	Extractor    string `json:"extractor"`
	ExtractorKey string `json:"extractor_key"`

	Title     string `json:"title"`
	FullTitle string `json:"fulltitle"`
	Ext       string `json:"ext"`

	Filepath           string              `json:"filepath"`
	RequestedDownloads []RequestedDownload `json:"requested_downloads"`

	WebpageURL  string `json:"webpage_url"`
	OriginalURL string `json:"original_url"`

	Uploader    string `json:"uploader"`
	UploaderID  string `json:"uploader_id"`
	UploaderURL string `json:"uploader_url"`
	Channel     string `json:"channel"`
	ChannelURL  string `json:"channel_url"`

	ViewCount *int64 `json:"view_count"`
	LikeCount *int64 `json:"like_count"`

	// Timestamp is the upload time as a Unix epoch; UploadDate is the same
	// information as a YYYYMMDD string. Backends set one or both.
	Timestamp  int64  `json:"timestamp"`
	UploadDate string `json:"upload_date"`

	Duration float64 `json:"duration"`
}

// BestID returns the primary content ID, falling back to the display ID.
func (i *Info) BestID() string {
	if i.ID != "" {
		return i.ID
	}
	return i.DisplayID
}

// BestTitle prefers the full (unshortened) title.
func (i *Info) BestTitle() string {
	if i.FullTitle != "" {
		return i.FullTitle
	}
	return i.Title
}

// CreationTime returns the upload time, trying the epoch timestamp first and
// the YYYYMMDD date second. Returns the zero time if neither is usable.
func (i *Info) CreationTime() time.Time {
	if i.Timestamp > 0 {
		return time.Unix(i.Timestamp, 0).UTC()
	}
	if i.UploadDate != "" {
		if t, err := time.Parse("20060102", i.UploadDate); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ResolveFile locates the downloaded file on disk. Backends report the output
// path in several ways, tried in order:
//
//  1. an explicit filepath field;
//  2. the filepath of the first requested-download sub-record;
//  3. a glob of <id>.* in the download directory, restricted to known video
//     extensions, preferring the most recently modified match;
//  4. the <id>.<ext> naming convention (ext defaulting to mp4).
func (i *Info) ResolveFile(downloadDir string) (string, error) {
	if i.Filepath != "" {
		if _, err := os.Stat(i.Filepath); err == nil {
			return i.Filepath, nil
		}
	}
	for _, rd := range i.RequestedDownloads {
		if rd.Filepath == "" {
			continue
		}
		if _, err := os.Stat(rd.Filepath); err == nil {
			return rd.Filepath, nil
		}
	}

	id := i.BestID()
	if id == "" {
		return "", fmt.Errorf("%w: no ID to reconstruct a path from", ErrFileNotFound)
	}

	matches, _ := filepath.Glob(filepath.Join(downloadDir, id+".*"))
	var newest string
	var newestMod time.Time
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() || !VideoExtensions.Contains(filepath.Ext(m)) {
			continue
		}
		if newest == "" || fi.ModTime().After(newestMod) {
			newest = m
			newestMod = fi.ModTime()
		}
	}
	if newest != "" {
		return newest, nil
	}

	ext := i.Ext
	if ext == "" {
		ext = "mp4"
	}
	candidate := filepath.Join(downloadDir, fmt.Sprintf("%s.%s", id, ext))
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}

	return "", fmt.Errorf("%w: id=%s dir=%s", ErrFileNotFound, id, downloadDir)
}
