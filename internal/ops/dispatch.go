package ops

// Mode is the operation mode selected from command flags.
type Mode int

const (
	ModeNone Mode = iota
	ModeByID
	ModeAll
	ModeAllSeparate
	ModeFirst
)

func (m Mode) String() string {
	switch m {
	case ModeByID:
		return "by-id"
	case ModeAll:
		return "all"
	case ModeAllSeparate:
		return "all-separate"
	case ModeFirst:
		return "first"
	default:
		return "none"
	}
}

// ImportOptions are the validated flags of an import command.
type ImportOptions struct {
	ID          string
	File        string
	All         bool
	AllSeparate bool
	Directory   string
	Raw         bool
	// Clean deletes every existing object before an all-separate import.
	Clean  bool
	NoDeps bool
}

// Validate rejects flag combinations that no import mode accepts.
func (o ImportOptions) Validate() error {
	if o.Clean && o.Mode() != ModeAllSeparate {
		return &ErrUsage{Reason: "--clean requires --all-separate"}
	}
	return nil
}

// Mode selects the import mode. The first matching rule wins:
// id and file, all and file, all-separate without file, file alone.
func (o ImportOptions) Mode() Mode {
	switch {
	case o.ID != "" && o.File != "":
		return ModeByID
	case o.All && o.File != "":
		return ModeAll
	case o.AllSeparate && o.File == "":
		return ModeAllSeparate
	case o.File != "":
		return ModeFirst
	default:
		return ModeNone
	}
}

// ExportOptions are the validated flags of an export command.
type ExportOptions struct {
	ID          string
	File        string
	All         bool
	AllSeparate bool
	Directory   string
	NoMetadata  bool
	NoDeps      bool
}

// Mode selects the export mode: id, then all, then all-separate.
func (o ExportOptions) Mode() Mode {
	switch {
	case o.ID != "":
		return ModeByID
	case o.All:
		return ModeAll
	case o.AllSeparate:
		return ModeAllSeparate
	default:
		return ModeNone
	}
}

// DeleteOptions are the validated flags of a delete command.
type DeleteOptions struct {
	ID  string
	All bool
}

// Mode selects by-id before all.
func (o DeleteOptions) Mode() Mode {
	switch {
	case o.ID != "":
		return ModeByID
	case o.All:
		return ModeAll
	default:
		return ModeNone
	}
}
