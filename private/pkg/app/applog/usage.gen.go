// Generated. DO NOT EDIT.

package applog

import _ "github.com/bufbuild/protoguard/private/usage"
