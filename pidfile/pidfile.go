/*
 * MIT License
 *
 * Copyright (c) 2019 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package pidfile writes and removes the server's pid file, recovered from
// nsd/pidfile.c. Unlike the original's lazily-cached global path, Path is
// passed explicitly by the caller (config holds it, not a package global).
package pidfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/aolserver/aolserver-sub004/logging"
)

// LastPID reads an existing pid file at path and returns the pid it
// contains, or -1 if the file is absent, unreadable, or malformed.
func LastPID(path string, log *logging.Logger) int {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Errorf("could not open pid file %s: %v", path, err)
		}
		return -1
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		log.Warnf("invalid pid file: %s", path)
		return -1
	}

	return pid
}

// Create writes the current process's pid to path, truncating any
// previous contents.
func Create(path string, log *logging.Logger) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0644)
	if err != nil {
		log.Errorf("could not open pid file %q: %v", path, err)
		return err
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		log.Errorf("write() failed: %v", err)
		return err
	}

	return nil
}

// Remove deletes the pid file at path, logging but not failing on error
// (a clean shutdown proceeds regardless).
func Remove(path string, log *logging.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Errorf("could not remove %q: %v", path, err)
	}
}
