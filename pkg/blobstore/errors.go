// Copyright (C) 2022 NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package blobstore

import "errors"

// ErrNotFound is returned by Get/Delete for a key that does not exist.
var ErrNotFound = errors.New("blobstore: key not found")

// ErrPresignUnsupported is returned by PresignGet on backends that have
// no notion of a signed URL.
var ErrPresignUnsupported = errors.New("blobstore: presigned URLs not supported by this backend")
