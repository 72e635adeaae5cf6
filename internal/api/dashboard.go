// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dashboard registers GET /stats with run totals and failures per error kind.
func Dashboard(r *gin.RouterGroup, store EditStore) {
	stats := r.Group("/stats")
	{
		stats.GET("", func(c *gin.Context) {
			out, err := store.Stats(c.Request.Context())
			if err != nil {
				slog.ErrorContext(c.Request.Context(), "stats query failed", "error", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read stats"})
				return
			}
			c.JSON(http.StatusOK, out)
		})
	}
}
