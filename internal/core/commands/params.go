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

// Package commands holds the steps of the edit workflows. Every command
// embeds cor.BaseCommand, reads what it needs from the shared cor.Context
// and writes its result back under a well known key for later steps.
package commands

// Context keys shared by the edit commands.
const (
	ParamSourcePath = "__SOURCE_PATH__" // string, local path of the source video
	ParamVideoAsset = "__VIDEO_ASSET__" // *model.VideoAsset
	ParamWorkDir    = "__WORK_DIR__"    // string, scratch directory of the run
	ParamOutputPath = "__OUTPUT_PATH__" // string, where the edited video goes
	ParamAnalysis   = "__ANALYSIS__"    // *model.AnalysisResult
	ParamSegments   = "__SEGMENTS__"    // []*model.EditSegment
	ParamClips      = "__CLIPS__"       // []*model.EditedClip
	ParamTimeline   = "__TIMELINE__"    // *model.Timeline
	ParamEditRun    = "__EDIT_RUN__"    // *model.EditRun
	ParamSkip       = "__SKIP__"        // string, why a notification is ignored
)

// GetVideoUploadFileParameterName is the key of the *genai.Part handing the
// source video to the analysis model.
func GetVideoUploadFileParameterName() string {
	return "__VIDEO_UPLOAD_FILE__"
}

// GetVideoUploadObjectParameterName is the key of the *cloud.GCSObject
// created when the source had to be uploaded for analysis.
func GetVideoUploadObjectParameterName() string {
	return "__VIDEO_UPLOAD_OBJECT__"
}
