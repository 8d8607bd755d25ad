// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package s3

import (
	"github.com/tfcheck/tfcheck/internal/cacheutil"
	"github.com/tfcheck/tfcheck/internal/config"
)

// CacheReader reads the cache entry for the given object version, if it
// exists. The cache is organized by bucket, workspace key prefix, and key;
// the version id is hashed and used as the filename.
func CacheReader(be *BackendS3, key string) (*cacheutil.Entry, bool) {
	sub := []string{be.Backend.Config.Bucket, be.Backend.Config.Prefix, be.Backend.Config.Key}
	return cacheutil.Read(sub, key)
}

func CacheWriter(be *BackendS3, key string, data []byte) error {
	sub := []string{be.Backend.Config.Bucket, be.Backend.Config.Prefix, be.Backend.Config.Key}
	return cacheutil.Write(sub, key, data)
}

func PurgeCache() error {
	cleanHours, _ := config.GetInt("cache.clean")
	return cacheutil.Purge(cleanHours)
}
