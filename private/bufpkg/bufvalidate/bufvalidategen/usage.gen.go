// Generated. DO NOT EDIT.

package bufvalidategen

import _ "github.com/bufbuild/protoguard/private/usage"
