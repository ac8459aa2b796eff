/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU General Public License as published by
    the Free Software Foundation, either version 3 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU General Public License
    along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

/*
Package wal implements the append-only, length-prefixed write-ahead
log every engine shard replays on open.

Framing: 4-byte little-endian length, then a gob-encoded envelope
wrapping one Record. Append-only; no checksums — replay tolerates a
truncated trailing frame (a torn write from a crash mid-append) and
stops cleanly instead of failing.
*/
package wal

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/shrijacked/Pieskieo/errs"
)

// envelope is the on-disk frame payload; gob needs a concrete type with
// an interface field to round-trip the Record union.
type envelope struct {
	Rec Record
}

// Wal is a single shard's write-ahead log file.
type Wal struct {
	path string

	mu     sync.Mutex // single-writer serialization, per spec §5
	file   *os.File
	writer *bufio.Writer
}

// Open creates dir/wal.log if missing and opens it for append+read.
func Open(dir string) (*Wal, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errs.Io{Cause: err}
	}
	path := filepath.Join(dir, "wal.log")
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o640)
	if err != nil {
		return nil, errs.Io{Cause: err}
	}
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		f.Close()
		return nil, errs.Io{Cause: err}
	}
	return &Wal{path: path, file: f, writer: bufio.NewWriter(f)}, nil
}

// Path returns the backing log file's path.
func (w *Wal) Path() string { return w.path }

// Append buffers frame+payload for record. It does not fsync — callers
// rely on a periodic FlushSync for group commit.
func (w *Wal) Append(record Record) error {
	buf, err := encode(record)
	if err != nil {
		return errs.Codec{Cause: err}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(buf)))
	if _, err := w.writer.Write(lenBuf[:]); err != nil {
		return errs.Io{Cause: err}
	}
	if _, err := w.writer.Write(buf); err != nil {
		return errs.Io{Cause: err}
	}
	return nil
}

// FlushSync flushes the user buffer and fsyncs the file for durability.
func (w *Wal) FlushSync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return errs.Io{Cause: err}
	}
	if err := w.file.Sync(); err != nil {
		return errs.Io{Cause: err}
	}
	return nil
}

// Len returns the WAL's current length in bytes.
func (w *Wal) Len() (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.writer.Flush(); err != nil {
		return 0, errs.Io{Cause: err}
	}
	fi, err := w.file.Stat()
	if err != nil {
		return 0, errs.Io{Cause: err}
	}
	return fi.Size(), nil
}

// Replay iterates every record from offset 0 to EOF. A truncated
// trailing frame terminates replay cleanly without error.
func (w *Wal) Replay() ([]Record, error) {
	records, _, err := w.ReplaySince(0)
	return records, err
}

// ReplaySince replays starting at a byte offset known to be a frame
// boundary, returning the decoded records and the offset replay stopped at.
func (w *Wal) ReplaySince(offset int64) ([]Record, int64, error) {
	w.mu.Lock()
	if err := w.writer.Flush(); err != nil {
		w.mu.Unlock()
		return nil, 0, errs.Io{Cause: err}
	}
	w.mu.Unlock()

	f, err := os.Open(w.path)
	if err != nil {
		return nil, 0, errs.Io{Cause: err}
	}
	defer f.Close()
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, errs.Io{Cause: err}
	}

	r := bufio.NewReader(f)
	pos := offset
	var records []Record
	for {
		var lenBuf [4]byte
		n, err := io.ReadFull(r, lenBuf[:])
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break // clean stop on a torn trailing frame
			}
			return nil, 0, errs.Io{Cause: err}
		}
		pos += int64(n)
		length := binary.LittleEndian.Uint32(lenBuf[:])
		payload := make([]byte, length)
		n, err = io.ReadFull(r, payload)
		if err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return nil, 0, errs.Io{Cause: err}
		}
		pos += int64(n)
		rec, err := decode(payload)
		if err != nil {
			return nil, 0, errs.Codec{Cause: err}
		}
		records = append(records, rec)
	}
	return records, pos, nil
}

// Truncate shrinks the log to zero length and fsyncs.
func (w *Wal) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Truncate(0); err != nil {
		return errs.Io{Cause: err}
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return errs.Io{Cause: err}
	}
	if err := w.file.Sync(); err != nil {
		return errs.Io{Cause: err}
	}
	w.writer = bufio.NewWriter(w.file)
	return nil
}

// Close flushes and closes the backing file.
func (w *Wal) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.writer.Flush()
	return w.file.Close()
}

func encode(record Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(&envelope{Rec: record}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(payload []byte) (Record, error) {
	var env envelope
	dec := gob.NewDecoder(bytes.NewReader(payload))
	if err := dec.Decode(&env); err != nil {
		return nil, err
	}
	return env.Rec, nil
}
