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

package wal

import (
	"bytes"
	"encoding/gob"
)

// EncodeGob gob-encodes v for use as a PutRecord.Payload. Vector
// payloads use gob rather than JSON since they carry []float32 data
// the document/row family payloads don't.
func EncodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeGob decodes a payload previously produced by EncodeGob into out.
func DecodeGob(payload []byte, out interface{}) error {
	return gob.NewDecoder(bytes.NewReader(payload)).Decode(out)
}
