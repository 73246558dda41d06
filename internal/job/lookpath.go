package job

import (
	"os"
	"strings"
)

// lookPath resolves name against the colon-separated searchPath. An
// empty path segment means the current directory. On failure it
// returns the exit code the stage must report: 127 when nothing was
// found, 126 when the target exists but cannot be executed.
func lookPath(name, searchPath string) (path string, code int, msg string) {
	if strings.Contains(name, "/") {
		return checkExecutable(name)
	}

	sawCandidate := false
	for _, dir := range strings.Split(searchPath, ":") {
		if dir == "" {
			dir = "."
		}
		cand := dir + "/" + name
		info, err := os.Stat(cand)
		if err != nil || info.IsDir() {
			continue
		}
		if info.Mode()&0111 == 0 {
			sawCandidate = true
			continue
		}
		return cand, 0, ""
	}
	if sawCandidate {
		return "", 126, "Permission denied"
	}
	return "", 127, "command not found"
}

func checkExecutable(path string) (string, int, string) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return "", 127, "No such file or directory"
	case err != nil:
		return "", 126, err.Error()
	case info.IsDir():
		return "", 126, "Is a directory"
	case info.Mode()&0111 == 0:
		return "", 126, "Permission denied"
	}
	return path, 0, ""
}
