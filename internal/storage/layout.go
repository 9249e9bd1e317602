package storage

import "path/filepath"

const databaseFileName = "dairyforms.db"

// Layout maps form names to their files under one data directory.
type Layout struct {
	Root string
}

func NewLayout(root string) Layout {
	if root == "" {
		root = "data"
	}
	return Layout{Root: filepath.Clean(root)}
}

func (layout Layout) DraftPath(form string) string {
	return filepath.Join(layout.Root, "drafts", form+".json")
}

func (layout Layout) SubmissionsPath(form string) string {
	return filepath.Join(layout.Root, "submissions", form+".csv")
}

func (layout Layout) StagingRoot(form string) string {
	return filepath.Join(layout.Root, "staging", form)
}

func (layout Layout) PhotosDir(form string) string {
	return filepath.Join(layout.Root, "photos", form)
}

func (layout Layout) DatabasePath() string {
	return filepath.Join(layout.Root, databaseFileName)
}
