package ftpserver

import "strings"

// cwdMax bounds the working-directory buffer length, mirroring the
// original embedded source's FTP_CWD_SIZE (_MAX_LFN + 8).
const cwdMax = 255 + 8

// upOneLevel truncates p to its parent directory. If p has no parent (we
// were already at depth 1), it resets to "/".
func upOneLevel(p string) string {
	idx := strings.LastIndexByte(p, '/')
	if idx < 0 {
		return "/"
	}

	p = p[:idx]
	if p == "" {
		return "/"
	}

	return p
}

// buildPath applies the four path_build cases from the spec, in order, to
// produce a new working directory from the current one and a command
// parameter. It returns ok=false if the result would overflow cwdMax.
func buildPath(current, param string) (string, bool) {
	switch {
	case param == "/" || param == "":
		current = "/"
	case param == "..":
		current = upOneLevel(current)
	case len(param) > 0 && param[0] != '/':
		if !strings.HasSuffix(current, "/") {
			current += "/"
		}

		current += param
	default:
		current = param
	}

	if len(current) > 1 && strings.HasSuffix(current, "/") {
		current = current[:len(current)-1]
	}

	if len(current) > cwdMax-1 {
		return current, false
	}

	return current, true
}
