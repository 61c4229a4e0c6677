package minifat

import "errors"

// These errors are returned by the filesystem and may be checked with errors.Is.
// Most of them are decorated by a checkpoint, so they also carry the cause.
var (
	// ErrMount is returned when a volume could not be mounted.
	ErrMount = errors.New("could not mount the volume")

	// ErrMalformedVolume is returned when the boot sector is truncated or
	// describes an unusable geometry.
	ErrMalformedVolume = errors.New("malformed volume descriptor")

	// ErrVolumeTooSmall is returned by the formatter if the requested size
	// cannot even hold the reserved sectors and all FAT copies.
	ErrVolumeTooSmall = errors.New("volume too small for reserved sectors and FATs")

	// ErrOutOfRange is returned for any access behind the end of the medium.
	ErrOutOfRange = errors.New("access out of range of the medium")

	// ErrExhausted is returned when no free cluster is left.
	ErrExhausted = errors.New("no free cluster left")

	// ErrDirectoryFull is returned when a directory cluster has no free slot.
	// Directories never grow beyond their first cluster.
	ErrDirectoryFull = errors.New("directory is full")

	ErrNotFound          = errors.New("entry not found")
	ErrExists            = errors.New("entry already exists")
	ErrNotDirectory      = errors.New("not a directory")
	ErrDirectoryNotEmpty = errors.New("directory not empty")

	// ErrInvalidName is returned for names which cannot be stored as 8.3 name
	// and for raw names which are no valid text.
	ErrInvalidName = errors.New("invalid name")

	ErrInvalidCluster = errors.New("invalid cluster index")

	// ErrCorruption is returned when a cluster chain or the directory tree is
	// longer than the volume has clusters, which can only happen for cycles.
	ErrCorruption = errors.New("filesystem structure is corrupted")

	// ErrMirrorMismatch is returned if the FAT copies are not identical.
	ErrMirrorMismatch = errors.New("FAT copies differ")

	ErrNotSupported = errors.New("operation not supported")
)
