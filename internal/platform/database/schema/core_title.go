package schema

// CoreTitleTable represents the 'core.title' table
type CoreTitleTable struct {
	Table        string
	ID           string
	OwnerID      string
	Name         string
	Slug         string
	ChapterCount string
	RawCount     string
	Progress     string
	CreatedAt    string
	UpdatedAt    string
	DeletedAt    string
}

// CoreTitle is the schema definition for core.title
var CoreTitle = CoreTitleTable{
	Table:        "core.title",
	ID:           "id",
	OwnerID:      "ownerid",
	Name:         "name",
	Slug:         "slug",
	ChapterCount: "chaptercount",
	RawCount:     "rawcount",
	Progress:     "progress",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
	DeletedAt:    "deletedat",
}

func (t CoreTitleTable) Columns() []string {
	return []string{
		t.ID, t.OwnerID, t.Name, t.Slug, t.ChapterCount, t.RawCount,
		t.Progress, t.CreatedAt, t.UpdatedAt, t.DeletedAt,
	}
}
