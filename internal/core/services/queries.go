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
package services

// Queries against the runs table. The table name is substituted with
// fmt.Sprintf, values are always passed as query parameters.
const (
	QryFindRunById = "SELECT * FROM `%s` WHERE run_id = @run_id LIMIT 1"

	QryListRuns = "SELECT * FROM `%s` ORDER BY create_date DESC LIMIT @limit"

	QryRunStats = "SELECT COUNT(*) AS total, " +
		"COUNTIF(status = 'SUCCEEDED') AS succeeded, " +
		"COUNTIF(status = 'FAILED') AS failed, " +
		"IFNULL(AVG(duration_seconds), 0) AS avg_duration_seconds, " +
		"IFNULL(SUM(ARRAY_LENGTH(segments)), 0) AS segments " +
		"FROM `%s`"

	QryErrorKinds = "SELECT error_kind, COUNT(*) AS runs FROM `%s` WHERE status = 'FAILED' GROUP BY error_kind ORDER BY runs DESC"
)
