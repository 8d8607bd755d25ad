// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

package gcs

import (
	"github.com/tfcheck/tfcheck/internal/cacheutil"
	"github.com/tfcheck/tfcheck/internal/config"
)

// CacheReader reads the cache entry for the given generation, if it exists.
// The cache is organized by bucket and prefix; the generation is hashed and
// used as the filename.
func CacheReader(be *BackendGCS, key string) (*cacheutil.Entry, bool) {
	sub := []string{be.Backend.Config.Bucket, be.Backend.Config.Prefix}
	return cacheutil.Read(sub, key)
}

func CacheWriter(be *BackendGCS, key string, data []byte) error {
	sub := []string{be.Backend.Config.Bucket, be.Backend.Config.Prefix}
	return cacheutil.Write(sub, key, data)
}

func PurgeCache() error {
	cleanHours, _ := config.GetInt("cache.clean")
	return cacheutil.Purge(cleanHours)
}
