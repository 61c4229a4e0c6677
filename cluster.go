package minifat

import (
	"fmt"

	"github.com/aligator/minifat/checkpoint"
)

// ClusterSize returns the size of one cluster in bytes.
func (fs *FileSystem) ClusterSize() int64 {
	return int64(fs.desc.BPB.SectorsPerCluster) * fs.bytesPerSector
}

// ClusterOffset returns the byte offset of cluster inside of the volume.
func (fs *FileSystem) ClusterOffset(cluster uint32) (int64, error) {
	if cluster < firstDataCluster || cluster >= fs.clusterEnd {
		return 0, fmt.Errorf("%w: %d outside of the cluster heap 2..%d", ErrInvalidCluster, cluster, fs.clusterEnd-1)
	}

	heap := int64(fs.clusterHeapStart) * fs.bytesPerSector
	return heap + int64(cluster-firstDataCluster)*fs.ClusterSize(), nil
}

// ReadCluster returns the whole content of cluster.
func (fs *FileSystem) ReadCluster(cluster uint32) ([]byte, error) {
	offset, err := fs.ClusterOffset(cluster)
	if err != nil {
		return nil, err
	}

	data := make([]byte, fs.ClusterSize())
	if err := fs.dev.ReadRegion(offset, data); err != nil {
		return nil, checkpoint.From(fmt.Errorf("reading cluster %d: %w", cluster, err))
	}
	return data, nil
}

// ZeroCluster overwrites the whole content of cluster with zeros.
func (fs *FileSystem) ZeroCluster(cluster uint32) error {
	return fs.writeCluster(cluster, 0, make([]byte, fs.ClusterSize()))
}

// writeCluster writes p at the given offset inside of cluster.
func (fs *FileSystem) writeCluster(cluster uint32, offset int64, p []byte) error {
	base, err := fs.ClusterOffset(cluster)
	if err != nil {
		return err
	}

	if offset < 0 || offset+int64(len(p)) > fs.ClusterSize() {
		return fmt.Errorf("%w: %d bytes at %d do not fit into cluster %d", ErrOutOfRange, len(p), offset, cluster)
	}

	if err := fs.dev.WriteRegion(base+offset, p); err != nil {
		return checkpoint.From(fmt.Errorf("writing cluster %d: %w", cluster, err))
	}
	return nil
}
