package transaction

import "fmt"

// FileOp is one staged filesystem mutation. The set of ops is closed:
// WriteFile, MoveFile, DeleteFile and DeletePath.
type FileOp interface {
	Describe() string
	paths() []string
}

type WriteFile struct {
	Path    string
	Content []byte
}

type MoveFile struct {
	Src  string
	Dest string
}

type DeleteFile struct {
	Path string
}

// DeletePath removes a file or directory; Recursive removes a non-empty
// directory tree.
type DeletePath struct {
	Path      string
	Recursive bool
}

func (o WriteFile) Describe() string {
	return fmt.Sprintf("write  %s (%d bytes)", o.Path, len(o.Content))
}

func (o MoveFile) Describe() string { return fmt.Sprintf("move   %s -> %s", o.Src, o.Dest) }

func (o DeleteFile) Describe() string { return fmt.Sprintf("delete %s", o.Path) }

func (o DeletePath) Describe() string {
	if o.Recursive {
		return fmt.Sprintf("delete %s/ (recursive)", o.Path)
	}
	return fmt.Sprintf("delete %s/", o.Path)
}

func (o WriteFile) paths() []string  { return []string{o.Path} }
func (o MoveFile) paths() []string   { return []string{o.Src, o.Dest} }
func (o DeleteFile) paths() []string { return []string{o.Path} }
func (o DeletePath) paths() []string { return []string{o.Path} }

// Paths lists every workspace path an op reads or mutates.
func Paths(op FileOp) []string { return op.paths() }
