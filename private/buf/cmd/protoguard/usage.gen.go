// Generated. DO NOT EDIT.

package protoguard

import _ "github.com/bufbuild/protoguard/private/usage"
