package api

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"hackyplayer/internal/queue"
	"hackyplayer/internal/textutil"
)

// Talk is one entry of the schedule export used as the talks catalogue.
type Talk struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Speaker     string `json:"speaker"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// Catalog indexes talks by id.
type Catalog struct {
	talks map[int]Talk
}

// LoadCatalog reads a JSON array of talks. An empty path yields an empty catalogue.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := &Catalog{talks: make(map[int]Talk)}
	if strings.TrimSpace(path) == "" {
		return catalog, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read talks catalogue: %w", err)
	}
	var talks []Talk
	if err := json.Unmarshal(data, &talks); err != nil {
		return nil, fmt.Errorf("parse talks catalogue %s: %w", path, err)
	}
	for _, talk := range talks {
		catalog.talks[talk.ID] = talk
	}
	return catalog, nil
}

// Lookup returns the talk with the given id.
func (c *Catalog) Lookup(id int) (Talk, bool) {
	if c == nil {
		return Talk{}, false
	}
	talk, ok := c.talks[id]
	return talk, ok
}

// Len returns the number of talks in the catalogue.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.talks)
}

// Metadata builds the talk metadata of a build request. A known talk id
// yields the filename "<id>_<slug>" and the catalogue description; an unknown
// id is used alone as the filename.
func (c *Catalog) Metadata(talkID, title, presenter string) (queue.TalkMetadata, error) {
	meta := queue.TalkMetadata{
		Title:     strings.TrimSpace(title),
		Presenter: strings.TrimSpace(presenter),
	}
	talkID = strings.TrimSpace(talkID)
	if talkID == "" {
		return meta, nil
	}
	id, err := strconv.Atoi(talkID)
	if err != nil {
		return queue.TalkMetadata{}, fmt.Errorf("%w: talk id %q is not a number", queue.ErrInvalidArgs, talkID)
	}
	talk, ok := c.Lookup(id)
	if !ok {
		meta.Filename = talkID
		return meta, nil
	}
	slug := strings.TrimSpace(talk.Slug)
	if slug == "" {
		slug = textutil.Slug(talk.Title)
	}
	meta.Filename = talkID
	if slug != "" {
		meta.Filename = talkID + "_" + slug
	}
	meta.Description = strings.TrimSpace(talk.Description)
	return meta, nil
}
